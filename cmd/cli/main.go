package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hamed0406/linkwatch/internal/domain"
	"github.com/hamed0406/linkwatch/internal/incident"
)

func main() {
	api := os.Getenv("API_BASE")
	if api == "" {
		api = "http://localhost:5000"
	}
	hours := flag.Int("hours", 24, "window size in hours")
	typ := flag.String("type", "", "event type filter for history")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: cli [-hours N] [-type T] status|summary|incidents|history")
	}
	flag.Parse()

	cmd := "status"
	if flag.NArg() > 0 {
		cmd = flag.Arg(0)
	}
	c := &client{base: strings.TrimRight(api, "/"), key: os.Getenv("API_KEY"), http: &http.Client{Timeout: 15 * time.Second}}

	var err error
	switch cmd {
	case "status":
		var st domain.ConnectivityState
		if err = c.get("/api/status", nil, &st); err == nil {
			printStatus(st)
		}
	case "summary":
		var s incident.Summary
		if err = c.get("/api/summary", url.Values{"hours": {strconv.Itoa(*hours)}}, &s); err == nil {
			printSummary(*hours, s)
		}
	case "incidents":
		var inc []domain.Incident
		if err = c.get("/api/incidents", url.Values{"hours": {strconv.Itoa(*hours)}}, &inc); err == nil {
			printIncidents(inc)
		}
	case "history":
		q := url.Values{"hours": {strconv.Itoa(*hours)}}
		if *typ != "" {
			q.Set("type", *typ)
		}
		var evs []domain.Event
		if err = c.get("/api/history", q, &evs); err == nil {
			printHistory(evs)
		}
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Println("Error contacting API:", err)
		os.Exit(1)
	}
}

type client struct {
	base string
	key  string
	http *http.Client
}

func (c *client) get(path string, q url.Values, out any) error {
	u := c.base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	if c.key != "" {
		req.Header.Set("X-API-Key", c.key)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("API returned status %s: %s", resp.Status, strings.TrimSpace(string(b)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func since(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return incident.FormatDuration(time.Since(*t)) + " ago"
}

func printStatus(st domain.ConnectivityState) {
	if st.IsOnline {
		fmt.Println("Link: ONLINE")
	} else {
		fmt.Printf("Link: DOWN since %s (%s)\n", st.OutageStartedAt.Local().Format(time.DateTime), since(st.OutageStartedAt))
	}
	fmt.Println("Last heartbeat:", since(st.LastHeartbeatAt))
	if st.LastBootID != "" {
		fmt.Println("Boot id:", st.LastBootID)
	}
}

func printSummary(hours int, s incident.Summary) {
	printStatus(s.Status)
	fmt.Printf("\nLast %dh\n", hours)
	if s.SpeedStats.Count > 0 {
		fmt.Printf("  Speed: avg %.1f  min %.1f  max %.1f Mbps (%d tests)\n",
			s.SpeedStats.Avg, s.SpeedStats.Min, s.SpeedStats.Max, s.SpeedStats.Count)
	} else {
		fmt.Println("  Speed: no tests")
	}
	fmt.Printf("  Outages: %d, downtime %s\n", s.OutageStats.Count,
		incident.FormatDuration(time.Duration(s.OutageStats.TotalDowntimeSeconds*float64(time.Second))))
	fmt.Printf("  High latency events: %d\n", s.LatencyEventCount)
}

func printIncidents(inc []domain.Incident) {
	if len(inc) == 0 {
		fmt.Println("No incidents.")
		return
	}
	for _, in := range inc {
		fmt.Printf("%s  %-10s  %s\n", in.StartedAt.Local().Format(time.DateTime), in.Kind, describe(in))
	}
}

func describe(in domain.Incident) string {
	end := "ongoing"
	if in.ResolvedAt != nil {
		end = "resolved " + in.ResolvedAt.Local().Format(time.TimeOnly)
	}
	switch in.Kind {
	case domain.KindOutage:
		d := ""
		if in.DurationSeconds != nil {
			d = incident.FormatDuration(time.Duration(*in.DurationSeconds*float64(time.Second))) + ", "
		}
		return fmt.Sprintf("%scause %s, %s", d, in.Cause, end)
	case domain.KindSlowSpeed:
		s := fmt.Sprintf("%.1f Mbps (%s), %s", in.DownloadMbps, in.Trigger, end)
		if in.Retest != nil {
			verdict := "still slow"
			if in.Retest.Passed {
				verdict = "passed"
			}
			s += fmt.Sprintf(", retest %.1f Mbps %s", in.Retest.DownloadMbps, verdict)
		}
		return s
	default:
		return in.Summary + ", " + end
	}
}

func printHistory(evs []domain.Event) {
	if len(evs) == 0 {
		fmt.Println("No events.")
		return
	}
	for _, e := range evs {
		b, _ := json.Marshal(e.Payload)
		fmt.Printf("%s  %-14s  %s\n", e.ObservedAt.Local().Format(time.DateTime), e.Type, b)
	}
}
