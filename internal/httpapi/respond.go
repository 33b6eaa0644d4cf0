package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const maxBody = 1 << 20

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// fields is a loosely typed JSON object. Wrong-typed or missing values
// read as absent.
type fields map[string]any

var errNotJSON = errors.New("body is not a JSON object")

// readFields decodes a push body. An empty body is an empty object.
func readFields(r *http.Request) (fields, error) {
	b, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return fields{}, nil
	}
	var f fields
	if err := json.Unmarshal(b, &f); err != nil || f == nil {
		return nil, errNotJSON
	}
	return f, nil
}

func (f fields) str(key string) string {
	s, _ := f[key].(string)
	return s
}

func (f fields) num(key string) (float64, bool) {
	switch v := f[key].(type) {
	case float64:
		return v, true
	case string:
		n, err := strconv.ParseFloat(v, 64)
		return n, err == nil
	}
	return 0, false
}

func (f fields) timestamp(key string) (time.Time, bool) {
	switch v := f[key].(type) {
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		return t.UTC(), err == nil
	case float64:
		sec := int64(v)
		return time.Unix(sec, int64((v-float64(sec))*1e9)).UTC(), true
	}
	return time.Time{}, false
}

func (f fields) object(key string) map[string]any {
	m, _ := f[key].(map[string]any)
	return m
}

// hoursParam reads ?hours=, defaulting to 24 and clamped to a year.
func hoursParam(r *http.Request) int {
	h, err := strconv.Atoi(r.URL.Query().Get("hours"))
	if err != nil || h <= 0 {
		return 24
	}
	return min(h, 24*365)
}

// accessLog logs one line per request.
func accessLog(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("elapsed", time.Since(start)),
			)
		})
	}
}
