package pushclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hamed0406/linkwatch/internal/domain"
)

type captured struct {
	path string
	key  string
	body map[string]any
}

func newCollector(t *testing.T, status int, out *[]captured) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		*out = append(*out, captured{path: r.URL.Path, key: r.Header.Get("X-API-Key"), body: body})
		w.WriteHeader(status)
	}))
}

func TestClient_Heartbeat(t *testing.T) {
	var got []captured
	ts := newCollector(t, http.StatusOK, &got)
	defer ts.Close()

	c := New(ts.URL+"/", "rep_key", 2*time.Second)
	if err := c.Heartbeat(context.Background(), "boot-1", 42.5); err != nil {
		t.Fatalf("Heartbeat: %v", err)
	}
	if len(got) != 1 || got[0].path != "/api/heartbeat" || got[0].key != "rep_key" {
		t.Fatalf("unexpected request %+v", got)
	}
	if got[0].body["boot_id"] != "boot-1" || got[0].body["uptime_seconds"] != 42.5 {
		t.Fatalf("unexpected body %+v", got[0].body)
	}
}

func TestClient_DeliverRoutesItems(t *testing.T) {
	var got []captured
	ts := newCollector(t, http.StatusAccepted, &got)
	defer ts.Close()
	c := New(ts.URL, "", 2*time.Second)

	ev := domain.NewEvent(domain.EventOutageStart, time.Now(), nil)
	if err := c.Deliver(context.Background(), EventItem(ev)); err != nil {
		t.Fatalf("Deliver event: %v", err)
	}
	now := time.Now()
	oi := OutageItem(domain.OutageReport{StartedAt: now.Add(-time.Minute), EndedAt: now, DurationSeconds: 60})
	if err := c.Deliver(context.Background(), oi); err != nil {
		t.Fatalf("Deliver outage: %v", err)
	}
	if err := c.Deliver(context.Background(), Item{ID: "x"}); err == nil {
		t.Fatalf("empty item should fail")
	}

	if len(got) != 2 || got[0].path != "/api/events" || got[1].path != "/api/outage" {
		t.Fatalf("unexpected routing %+v", got)
	}
	if got[0].body["id"] != ev.ID || got[0].body["type"] != "outage_start" {
		t.Fatalf("event body %+v", got[0].body)
	}
	if got[1].body["id"] != oi.ID || got[1].body["duration_seconds"] != 60.0 {
		t.Fatalf("outage body %+v", got[1].body)
	}
	if got[0].key != "" {
		t.Fatalf("no key configured, header should be absent")
	}
}

func TestClient_Non2xxIsError(t *testing.T) {
	var got []captured
	ts := newCollector(t, http.StatusUnauthorized, &got)
	defer ts.Close()
	if err := New(ts.URL, "bad", time.Second).Heartbeat(context.Background(), "", 0); err == nil {
		t.Fatalf("want error on 401")
	}
}
