package agent

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/linkwatch/internal/domain"
	"github.com/hamed0406/linkwatch/internal/notify"
	"github.com/hamed0406/linkwatch/internal/probe"
	"github.com/hamed0406/linkwatch/internal/pushclient"
	"github.com/hamed0406/linkwatch/internal/repo/memory"
)

// ---- fakes ----

type seqProber struct {
	mu  sync.Mutex
	out []probe.CheckResult
	i   int
}

func (p *seqProber) Run(ctx context.Context) probe.CheckResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.i >= len(p.out) {
		return p.out[len(p.out)-1]
	}
	r := p.out[p.i]
	p.i++
	return r
}

func up(ms float64) probe.CheckResult {
	return probe.CheckResult{Target: "1.1.1.1", Success: true, LatencyMS: &ms}
}

func downResult() probe.CheckResult { return probe.CheckResult{Target: "1.1.1.1"} }

type fakeTester struct {
	mbps  float64
	err   error
	calls []domain.Trigger
}

func (f *fakeTester) Run(ctx context.Context, trig domain.Trigger) (domain.SpeedTestOutcome, error) {
	f.calls = append(f.calls, trig)
	if f.err != nil {
		return domain.SpeedTestOutcome{}, f.err
	}
	return domain.SpeedTestOutcome{MeasuredAt: t0, DownloadMbps: f.mbps, Trigger: trig, Method: domain.MethodQuick}, nil
}

type fakePusher struct {
	beatErr   error
	deliverOK bool
	beats     int
	delivered []pushclient.Item
}

func (f *fakePusher) Heartbeat(ctx context.Context, bootID string, uptime float64) error {
	f.beats++
	return f.beatErr
}

func (f *fakePusher) Deliver(ctx context.Context, it pushclient.Item) error {
	if !f.deliverOK {
		return errors.New("unreachable")
	}
	f.delivered = append(f.delivered, it)
	return nil
}

type memNotifier struct{ got []notify.Message }

func (m *memNotifier) Send(ctx context.Context, msg notify.Message) error {
	m.got = append(m.got, msg)
	return nil
}

type fixedSystem struct{}

func (fixedSystem) BootID() string         { return "boot-1" }
func (fixedSystem) UptimeSeconds() float64 { return 10 }

var t0 = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	a      *Agent
	now    *time.Time
	prober *seqProber
	quick  *fakeTester
	auth   *fakeTester
	push   *fakePusher
	notes  *memNotifier
	store  *memory.Store
	outbox *pushclient.Outbox
}

func newHarness(results ...probe.CheckResult) *harness {
	now := t0
	h := &harness{
		now:    &now,
		prober: &seqProber{out: results},
		quick:  &fakeTester{mbps: 90},
		auth:   &fakeTester{mbps: 90},
		push:   &fakePusher{deliverOK: true},
		notes:  &memNotifier{},
		store:  memory.New(),
		outbox: pushclient.NewOutbox(100, zap.NewNop()),
	}
	h.a = New(Config{
		PingInterval:       30 * time.Second,
		HeartbeatInterval:  time.Minute,
		HighLatencyMS:      200,
		SlowThresholdMbps:  50,
		SlowRetestInterval: 5 * time.Minute,
		ScheduledInterval:  time.Hour,
	}, Deps{
		Prober:        h.prober,
		Quick:         h.quick,
		Authoritative: h.auth,
		Pusher:        h.push,
		Outbox:        h.outbox,
		Store:         h.store,
		Notifier:      h.notes,
		System:        fixedSystem{},
		Logger:        zap.NewNop(),
		Now:           func() time.Time { return *h.now },
	})
	return h
}

func (h *harness) advance(d time.Duration) { *h.now = h.now.Add(d) }

func (h *harness) stored(t *testing.T) []domain.Event {
	t.Helper()
	evs, err := h.store.Range(context.Background(), t0.Add(-time.Hour), h.now.Add(time.Hour), "")
	if err != nil {
		t.Fatalf("Range: %v", err)
	}
	return evs
}

func (h *harness) pending() []domain.Trigger {
	var out []domain.Trigger
	for {
		select {
		case tr := <-h.a.requests:
			h.a.dequeued(tr)
			out = append(out, tr)
		default:
			return out
		}
	}
}

// ---- tests ----

func TestProbe_OutageLifecycle(t *testing.T) {
	ctx := context.Background()
	h := newHarness(up(10), downResult(), downResult(), up(12))

	h.a.ProbeOnce(ctx)
	h.advance(30 * time.Second)
	h.a.ProbeOnce(ctx)
	if h.a.Online() {
		t.Fatalf("should be in outage")
	}
	h.advance(30 * time.Second)
	h.a.ProbeOnce(ctx)
	h.advance(30 * time.Second)
	h.a.ProbeOnce(ctx)
	if !h.a.Online() {
		t.Fatalf("should be back online")
	}

	evs := h.stored(t)
	if len(evs) != 2 || evs[0].Type != domain.EventOutageStart || evs[1].Type != domain.EventOutageEnd {
		t.Fatalf("unexpected events %+v", evs)
	}
	if d, _ := evs[1].Float(domain.KeyDurationSeconds); d != 60 {
		t.Fatalf("want 60s outage, got %v", d)
	}
	// two events plus the outage report
	if h.outbox.Len() != 3 {
		t.Fatalf("outbox len %d", h.outbox.Len())
	}
	if p := h.pending(); len(p) != 1 || p[0] != domain.TriggerPostOutage {
		t.Fatalf("expected post_outage request, got %v", p)
	}
}

func TestProbe_HighLatency(t *testing.T) {
	h := newHarness(up(350))
	h.a.ProbeOnce(context.Background())

	evs := h.stored(t)
	if len(evs) != 1 || evs[0].Type != domain.EventHighLatency {
		t.Fatalf("unexpected events %+v", evs)
	}
	if ms, _ := evs[0].Float(domain.KeyPingMS); ms != 350 {
		t.Fatalf("ping_ms %v", ms)
	}
	if p := h.pending(); len(p) != 1 || p[0] != domain.TriggerHighLatency {
		t.Fatalf("expected high_latency request, got %v", p)
	}
}

func TestProbe_NilLatencyIsNotHigh(t *testing.T) {
	h := newHarness(probe.CheckResult{Target: "x", Success: true})
	h.a.ProbeOnce(context.Background())
	if len(h.stored(t)) != 0 || len(h.pending()) != 0 {
		t.Fatalf("absent latency must not count as high")
	}
}

func TestHeartbeat_OnlyWhileOnlineAndDrainsOutbox(t *testing.T) {
	ctx := context.Background()
	h := newHarness(downResult(), up(10))

	h.a.ProbeOnce(ctx) // outage
	h.a.HeartbeatOnce(ctx)
	if h.push.beats != 0 {
		t.Fatalf("no heartbeat during outage")
	}

	h.advance(time.Minute)
	h.a.ProbeOnce(ctx) // restored
	h.a.HeartbeatOnce(ctx)
	if h.push.beats != 1 {
		t.Fatalf("want one heartbeat, got %d", h.push.beats)
	}
	if h.outbox.Len() != 0 || len(h.push.delivered) != 3 {
		t.Fatalf("outbox should drain after heartbeat: pending=%d delivered=%d", h.outbox.Len(), len(h.push.delivered))
	}
	if h.push.delivered[0].Event == nil || h.push.delivered[0].Event.Type != domain.EventOutageStart {
		t.Fatalf("outbox order broken: %+v", h.push.delivered[0])
	}
	if h.a.Status().LastHeartbeatAt == nil {
		t.Fatalf("status should record heartbeat time")
	}
}

func TestHeartbeat_FailedBeatKeepsOutbox(t *testing.T) {
	ctx := context.Background()
	h := newHarness(up(500))
	h.push.beatErr = errors.New("timeout")
	h.a.ProbeOnce(ctx)
	h.a.HeartbeatOnce(ctx)
	if h.outbox.Len() != 1 {
		t.Fatalf("outbox must be kept when heartbeat fails")
	}
}

func TestRunTriaged_ConfirmedSlow(t *testing.T) {
	h := newHarness(up(10))
	h.quick.mbps = 20
	h.auth.mbps = 30

	d, ok := h.a.RunTriaged(context.Background(), domain.TriggerHighLatency)
	if !ok || !d.Escalated || !d.Slow || !d.SlowMode {
		t.Fatalf("unexpected decision %+v", d)
	}
	if len(h.auth.calls) != 1 || h.auth.calls[0] != "high_latency_confirm" {
		t.Fatalf("authoritative trigger %v", h.auth.calls)
	}
	evs := h.stored(t)
	if len(evs) != 1 {
		t.Fatalf("want one recorded test, got %d", len(evs))
	}
	if v, _ := evs[0].DownloadMbps(); v != 30 {
		t.Fatalf("ground truth should be recorded, got %v", v)
	}
	if q, _ := evs[0].Float(domain.KeyQuickMbps); q != 20 {
		t.Fatalf("quick reading should be kept, got %v", q)
	}
	if len(h.notes.got) != 1 || !strings.HasSuffix(h.notes.got[0].Title, "(CONFIRMED SLOW)") {
		t.Fatalf("notification %+v", h.notes.got)
	}
	if !h.a.Status().SlowMode {
		t.Fatalf("status should expose slow mode")
	}
}

func TestRunTriaged_QuickSlowButConfirmedOK(t *testing.T) {
	h := newHarness(up(10))
	h.quick.mbps = 20
	h.auth.mbps = 55

	d, _ := h.a.RunTriaged(context.Background(), domain.TriggerPostOutage)
	if d.Slow || d.SlowMode {
		t.Fatalf("authoritative result is ground truth: %+v", d)
	}
	if !strings.HasSuffix(h.notes.got[0].Title, "(OK)") {
		t.Fatalf("want OK title, got %q", h.notes.got[0].Title)
	}
}

func TestRunTriaged_ScheduledFastNotReported(t *testing.T) {
	h := newHarness(up(10))
	h.quick.mbps = 95

	d, ok := h.a.RunTriaged(context.Background(), domain.TriggerScheduled)
	if !ok || d.Report {
		t.Fatalf("fast scheduled test should not be reported: %+v", d)
	}
	if len(h.stored(t)) != 0 || len(h.notes.got) != 0 || h.outbox.Len() != 0 {
		t.Fatalf("nothing should be recorded or sent")
	}
	if h.a.Status().LastTest == nil {
		t.Fatalf("status should still show the last test")
	}
}

func TestRunTriaged_QuickFailure(t *testing.T) {
	h := newHarness(up(10))
	h.quick.err = errors.New("collector unreachable")
	if _, ok := h.a.RunTriaged(context.Background(), domain.TriggerManual); ok {
		t.Fatalf("want failure")
	}
	if len(h.auth.calls) != 0 {
		t.Fatalf("no escalation without a quick result")
	}
}

func TestRunAuthoritative_FeedsHysteresis(t *testing.T) {
	h := newHarness(up(10))
	h.auth.mbps = 10
	o, err := h.a.RunAuthoritative(context.Background(), domain.TriggerManual)
	if err != nil || o.DownloadMbps != 10 {
		t.Fatalf("RunAuthoritative: %+v %v", o, err)
	}
	if !h.a.Status().SlowMode {
		t.Fatalf("slow authoritative result should enter slow mode")
	}
	if !strings.HasSuffix(h.notes.got[0].Title, "(SLOW)") {
		t.Fatalf("title %q", h.notes.got[0].Title)
	}

	h.a.d.Authoritative = nil
	if _, err := h.a.RunAuthoritative(context.Background(), domain.TriggerManual); !errors.Is(err, ErrNoAuthoritative) {
		t.Fatalf("want ErrNoAuthoritative, got %v", err)
	}
}

func TestRunFull_CombinedNotification(t *testing.T) {
	h := newHarness(up(10))
	h.quick.mbps = 45
	h.auth.mbps = 80

	r := h.a.RunFull(context.Background())
	if r.Quick == nil || r.Authoritative == nil {
		t.Fatalf("both tests should run: %+v", r)
	}
	if len(h.stored(t)) != 2 {
		t.Fatalf("both results are recorded")
	}
	if len(h.notes.got) != 1 || h.notes.got[0].Title != "Full Speed Test: SLOW" {
		t.Fatalf("any slow download marks the full test slow: %+v", h.notes.got)
	}
	if h.a.Status().SlowMode {
		t.Fatalf("hysteresis follows the authoritative reading")
	}
}

func TestRequest_CoalescesPerTrigger(t *testing.T) {
	h := newHarness(up(10))
	for i := 0; i < 20; i++ {
		h.a.Request(domain.TriggerHighLatency)
	}
	h.a.Request(domain.TriggerPostOutage)
	h.a.Request(domain.TriggerHighLatency)

	got := h.pending()
	if len(got) != 2 || got[0] != domain.TriggerHighLatency || got[1] != domain.TriggerPostOutage {
		t.Fatalf("want one high_latency and one post_outage, got %v", got)
	}

	// once taken off the queue the trigger can be requested again
	h.a.Request(domain.TriggerHighLatency)
	if got := h.pending(); len(got) != 1 {
		t.Fatalf("want re-queued high_latency, got %v", got)
	}
}

func TestSpeedWorker_ScheduledAtStartThenRequests(t *testing.T) {
	h := newHarness(up(10))
	h.quick.mbps = 95
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.a.SpeedWorker(ctx)
		close(done)
	}()
	h.a.Request(domain.TriggerManual)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		h.a.testMu.Lock()
		n := len(h.quick.calls)
		h.a.testMu.Unlock()
		if n >= 2 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	if len(h.quick.calls) < 2 || h.quick.calls[0] != domain.TriggerScheduled || h.quick.calls[1] != domain.TriggerManual {
		t.Fatalf("unexpected call order %v", h.quick.calls)
	}
}
