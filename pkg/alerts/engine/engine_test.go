package engine

// $ go test -v pkg/alerts/engine/*.go

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moonwalker/linewatch/pkg/alerts"
	"github.com/moonwalker/linewatch/pkg/feed"
	"github.com/moonwalker/linewatch/pkg/history"
	"github.com/moonwalker/linewatch/pkg/notify"
	"github.com/moonwalker/linewatch/pkg/seenstore"
)

type stubRule struct {
	name    string
	payload alerts.Payload
	err     error
	calls   int
}

func (r *stubRule) Name() string { return r.name }

func (r *stubRule) Check(evt feed.Event) (alerts.Payload, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	if r.payload == nil {
		return nil, nil
	}
	p := alerts.Payload{}
	for k, v := range r.payload {
		p[k] = v
	}
	return p, nil
}

type panicRule struct{}

func (r *panicRule) Name() string { return "BOOM" }

func (r *panicRule) Check(evt feed.Event) (alerts.Payload, error) {
	panic("malformed odds")
}

func ruleDescriptor(name string, payload alerts.Payload) *alerts.Descriptor {
	return &alerts.Descriptor{
		Name: name,
		New: func(cfg alerts.Config) (alerts.Alert, error) {
			return &stubRule{name: name, payload: payload}, nil
		},
	}
}

type captureNotifier struct {
	texts []string
	fail  int // fail the first n deliveries
}

func (n *captureNotifier) Deliver(ctx context.Context, text string) error {
	if n.fail > 0 {
		n.fail--
		return errors.New("transport unreachable")
	}
	n.texts = append(n.texts, text)
	return nil
}

type captureRecorder struct {
	firings []*history.Firing
}

func (r *captureRecorder) Record(ctx context.Context, f *history.Firing) error {
	r.firings = append(r.firings, f)
	return nil
}

func (r *captureRecorder) Close() error { return nil }

func plainFormat(evt feed.Event, payload alerts.Payload, name string) string {
	return name + " " + evt.ID()
}

func testConfig(t *testing.T, n notify.Notifier, ds ...*alerts.Descriptor) Config {
	t.Helper()
	return Config{
		Descriptors: ds,
		LogDir:      t.TempDir(),
		Seen:        seenstore.Config{Backend: "memory"},
		Notifier:    n,
		Format:      plainFormat,
	}
}

func batch(ids ...string) []feed.Event {
	evts := make([]feed.Event, 0, len(ids))
	for _, id := range ids {
		evts = append(evts, feed.Event(`{"event_id":"`+id+`"}`))
	}
	return evts
}

func TestFiresOncePerEvent(t *testing.T) {
	n := &captureNotifier{}
	e, err := New(testConfig(t, n, ruleDescriptor("ALWAYS", alerts.Payload{"line": 4.0})))
	require.NoError(t, err)
	defer e.Close()

	first := e.Run(context.Background(), batch("m1", "m2"))
	assert.Equal(t, 2, first.Firings)
	assert.Equal(t, 2, first.Deliveries)
	assert.Equal(t, []string{"ALWAYS m1", "ALWAYS m2"}, n.texts)

	// same snapshot again: condition still met, nothing delivered
	second := e.Run(context.Background(), batch("m1", "m2"))
	assert.Equal(t, 0, second.Firings)
	assert.Equal(t, 0, second.Deliveries)
	assert.Equal(t, 2, second.Skipped)
	assert.Len(t, n.texts, 2)
}

func TestNewEventStillFires(t *testing.T) {
	n := &captureNotifier{}
	e, err := New(testConfig(t, n, ruleDescriptor("ALWAYS", alerts.Payload{"line": 4.0})))
	require.NoError(t, err)
	defer e.Close()

	e.Run(context.Background(), batch("m1"))
	ps := e.Run(context.Background(), batch("m1", "m2"))

	assert.Equal(t, 1, ps.Deliveries)
	assert.Equal(t, []string{"ALWAYS m1", "ALWAYS m2"}, n.texts)
}

func TestRestartDoesNotRedeliver(t *testing.T) {
	seenDir := t.TempDir()
	logDir := t.TempDir()

	run := func() (PassStats, *captureNotifier) {
		n := &captureNotifier{}
		e, err := New(Config{
			Descriptors: []*alerts.Descriptor{ruleDescriptor("ALWAYS", alerts.Payload{"line": 4.0})},
			LogDir:      logDir,
			Seen:        seenstore.Config{Backend: "file", Dir: seenDir},
			Notifier:    n,
			Format:      plainFormat,
		})
		require.NoError(t, err)
		defer e.Close()
		return e.Run(context.Background(), batch("m1", "m2")), n
	}

	first, _ := run()
	assert.Equal(t, 2, first.Deliveries)

	// fresh engine, same seen state on disk
	second, n := run()
	assert.Equal(t, 0, second.Deliveries)
	assert.Equal(t, 2, second.Skipped)
	assert.Empty(t, n.texts)
}

func TestPanickingRuleDoesNotStopOthers(t *testing.T) {
	boom := &alerts.Descriptor{
		Name: "BOOM",
		New:  func(alerts.Config) (alerts.Alert, error) { return &panicRule{}, nil },
	}

	n := &captureNotifier{}
	e, err := New(testConfig(t, n, boom, ruleDescriptor("GOOD", alerts.Payload{"line": 4.0})))
	require.NoError(t, err)
	defer e.Close()

	ps := e.Run(context.Background(), batch("m1"))

	assert.Equal(t, 2, ps.Checked)
	assert.Equal(t, 1, ps.Deliveries)
	assert.Equal(t, []string{"GOOD m1"}, n.texts)
}

func TestDeliveryFailureRetriesNextPass(t *testing.T) {
	n := &captureNotifier{fail: 1}
	e, err := New(testConfig(t, n, ruleDescriptor("ALWAYS", alerts.Payload{"line": 4.0})))
	require.NoError(t, err)
	defer e.Close()

	first := e.Run(context.Background(), batch("m1"))
	assert.Equal(t, 1, first.Firings)
	assert.Equal(t, 1, first.Failures)
	assert.Equal(t, 0, first.Deliveries)

	// id was not marked seen, so the next pass delivers it
	second := e.Run(context.Background(), batch("m1"))
	assert.Equal(t, 1, second.Deliveries)
	assert.Equal(t, []string{"ALWAYS m1"}, n.texts)

	// and only then is it done
	third := e.Run(context.Background(), batch("m1"))
	assert.Equal(t, 0, third.Deliveries)
	assert.Equal(t, 1, third.Skipped)
}

func TestConstructionFailureSkipsAlert(t *testing.T) {
	bad := &alerts.Descriptor{
		Name: "BAD",
		New: func(alerts.Config) (alerts.Alert, error) {
			return nil, errors.New("threshold must be positive")
		},
	}

	n := &captureNotifier{}
	e, err := New(testConfig(t, n, bad, ruleDescriptor("GOOD", alerts.Payload{"line": 4.0})))
	require.NoError(t, err)
	defer e.Close()

	stats := e.Stats()
	assert.Equal(t, 2, stats.Discovered)
	assert.Equal(t, 1, stats.Active)

	ps := e.Run(context.Background(), batch("m1"))
	assert.Equal(t, 1, ps.Checked)
	assert.Equal(t, 1, ps.Deliveries)
}

func TestTypeInjectedIntoPayload(t *testing.T) {
	rec := &captureRecorder{}
	cfg := testConfig(t, &captureNotifier{}, ruleDescriptor("NOTYPE", alerts.Payload{"line": 4.0}))
	cfg.History = rec

	e, err := New(cfg)
	require.NoError(t, err)
	defer e.Close()

	e.Run(context.Background(), batch("m1"))

	require.Len(t, rec.firings, 1)
	f := rec.firings[0]
	assert.Equal(t, "NOTYPE", f.Alert)
	assert.Equal(t, "m1", f.EventID)
	assert.Equal(t, "NOTYPE", f.Payload["type"])
	assert.Equal(t, "NOTYPE m1", f.Message)
	assert.False(t, f.At.IsZero())
}

func TestEventsWithoutIDSkipped(t *testing.T) {
	n := &captureNotifier{}
	e, err := New(testConfig(t, n, ruleDescriptor("ALWAYS", alerts.Payload{"line": 4.0})))
	require.NoError(t, err)
	defer e.Close()

	ps := e.Run(context.Background(), []feed.Event{
		feed.Event(`{"league":"no id here"}`),
		feed.Event(`{"event_id":""}`),
		feed.Event(`{"event_id":"m1"}`),
	})

	assert.Equal(t, 3, ps.Events)
	assert.Equal(t, 1, ps.Checked)
	assert.Equal(t, []string{"ALWAYS m1"}, n.texts)
}

func TestStatsAccumulateAcrossPasses(t *testing.T) {
	e, err := New(testConfig(t, &captureNotifier{}, ruleDescriptor("ALWAYS", alerts.Payload{"line": 4.0})))
	require.NoError(t, err)
	defer e.Close()

	e.Run(context.Background(), batch("m1"))
	e.Run(context.Background(), batch("m1", "m2"))

	stats := e.Stats()
	assert.Equal(t, 2, stats.Passes)
	assert.Equal(t, 2, stats.Firings)
	assert.Equal(t, 2, stats.Deliveries)
	assert.Equal(t, 0, stats.DeliveryFailures)
}

func TestOnStatsEmitsImmediately(t *testing.T) {
	e, err := New(testConfig(t, &captureNotifier{}, ruleDescriptor("ALWAYS", nil)))
	require.NoError(t, err)
	defer e.Close()

	var got *Stats
	e.OnStats(time.Hour, func(stats *Stats) { got = stats })

	require.NotNil(t, got)
	assert.Equal(t, 1, got.Active)
}

func TestNewRejectsNilNotifier(t *testing.T) {
	_, err := New(Config{LogDir: t.TempDir(), Seen: seenstore.Config{Backend: "memory"}})
	assert.Error(t, err)
}

func TestDefaultFormatMentionsAlert(t *testing.T) {
	n := &captureNotifier{}
	cfg := testConfig(t, n, ruleDescriptor("OU3", alerts.Payload{"line": 4.0, "detail": "Over/Under Line: 4.00"}))
	cfg.Format = nil

	e, err := New(cfg)
	require.NoError(t, err)
	defer e.Close()

	e.Run(context.Background(), batch("m1"))

	require.Len(t, n.texts, 1)
	assert.Contains(t, n.texts[0], "OU3")
}
