package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/moonwalker/linewatch/pkg/alerts"
	"github.com/moonwalker/linewatch/pkg/feed"
	"github.com/moonwalker/linewatch/pkg/history"
	"github.com/moonwalker/linewatch/pkg/notify"
	"github.com/moonwalker/linewatch/pkg/seenstore"
	"github.com/moonwalker/linewatch/pkg/summary"
)

// FormatFunc renders a met alert condition into notification text.
type FormatFunc func(evt feed.Event, payload alerts.Payload, name string) string

type Config struct {
	Descriptors []*alerts.Descriptor // nil means the default registry
	Overrides   alerts.Overrides
	LogDir      string
	Seen        seenstore.Config
	Notifier    notify.Notifier
	Format      FormatFunc       // nil means summary.FormatAlert
	History     history.Recorder // optional audit trail
}

// Engine activates the registered alerts and drives them over event
// snapshots. One alert's failure never stops the others: construction
// errors skip the alert, check errors and panics are contained per
// evaluation, delivery failures are retried on the next pass.
type Engine struct {
	sync.Mutex
	instances []*alerts.Instance
	notifier  notify.Notifier
	format    FormatFunc
	history   history.Recorder
	onStats   func(*Stats)

	discovered int
	passes     int
	firings    int
	deliveries int
	failures   int
}

type Stats struct {
	Discovered       int `json:"discovered"`
	Active           int `json:"active"`
	Passes           int `json:"passes"`
	Firings          int `json:"firings"`
	Deliveries       int `json:"deliveries"`
	DeliveryFailures int `json:"deliveryFailures"`
}

// PassStats summarizes one Run over one snapshot.
type PassStats struct {
	Events     int
	Checked    int
	Firings    int
	Deliveries int
	Failures   int
	Skipped    int
}

// New activates every descriptor: resolves params, opens the log sink
// and seen store, runs the constructor. An alert whose constructor
// fails is skipped for the process lifetime, a seen store that cannot
// open degrades to memory so evaluation always proceeds.
func New(cfg Config) (*Engine, error) {
	if cfg.Notifier == nil {
		return nil, fmt.Errorf("engine needs a notifier")
	}

	descriptors := cfg.Descriptors
	if descriptors == nil {
		descriptors = alerts.Descriptors()
	}

	e := &Engine{
		notifier:   cfg.Notifier,
		format:     cfg.Format,
		history:    cfg.History,
		discovered: len(descriptors),
	}
	if e.format == nil {
		e.format = summary.FormatAlert
	}

	for _, d := range descriptors {
		params := alerts.ResolveParams(d.Defaults, cfg.Overrides[d.Name])

		seen, err := seenstore.Open(cfg.Seen, d.Name)
		if err != nil {
			slog.Warn("seen store unavailable, falling back to memory",
				"alert", d.Name, "backend", cfg.Seen.Backend, "err", err.Error())
			seen = seenstore.NewMemoryStore()
		}

		inst, err := alerts.NewInstance(d, params, cfg.LogDir, seen)
		if err != nil {
			slog.Error("alert construction failed, skipping", "alert", d.Name, "err", err.Error())
			seen.Close()
			continue
		}

		e.instances = append(e.instances, inst)
	}

	slog.Info("alerts loaded", "discovered", e.discovered, "active", len(e.instances))

	return e, nil
}

// Run evaluates every active alert against every event, in order. One
// call is one pass over one snapshot, scheduling passes is the caller's
// job. An alert fires at most once per event id: delivery comes first,
// the id is marked seen only after the notifier accepted the message,
// so a failed delivery is retried on the next pass.
func (e *Engine) Run(ctx context.Context, events []feed.Event) PassStats {
	e.Lock()
	defer e.Unlock()

	ps := PassStats{Events: len(events)}

	for _, evt := range events {
		if err := ctx.Err(); err != nil {
			slog.Warn("pass aborted", "err", err.Error())
			break
		}

		id := evt.ID()
		if len(id) == 0 {
			slog.Debug("event without id skipped")
			continue
		}

		for _, inst := range e.instances {
			payload := alerts.SafeCheck(inst, evt)
			ps.Checked++
			if payload == nil {
				continue
			}

			name := inst.Alert.Name()
			if _, ok := payload["type"]; !ok {
				payload["type"] = name
			}

			if inst.Seen.Has(id) {
				ps.Skipped++
				continue
			}
			ps.Firings++

			text := e.format(evt, payload, name)

			err := e.notifier.Deliver(ctx, text)
			if err != nil {
				// not marked seen, the next pass retries
				ps.Failures++
				slog.Error("alert delivery failed", "alert", name, "event", id, "err", err.Error())
				continue
			}
			ps.Deliveries++

			inst.Log.Info("alert fired", "event", id, "payload", payload)
			e.record(ctx, name, id, payload, text)

			err = inst.Seen.Add(id)
			if err != nil {
				// accepted risk: this id may fire again after a restart
				slog.Error("seen store add failed", "alert", name, "event", id, "err", err.Error())
			}
		}
	}

	e.passes++
	e.firings += ps.Firings
	e.deliveries += ps.Deliveries
	e.failures += ps.Failures

	slog.Info("pass complete",
		"events", ps.Events,
		"firings", ps.Firings,
		"deliveries", ps.Deliveries,
		"failures", ps.Failures,
		"skipped", ps.Skipped,
	)

	return ps
}

func (e *Engine) record(ctx context.Context, name, id string, payload alerts.Payload, text string) {
	if e.history == nil {
		return
	}

	err := e.history.Record(ctx, &history.Firing{
		Alert:   name,
		EventID: id,
		Payload: payload,
		Message: text,
		At:      time.Now().UTC(),
	})
	if err != nil {
		slog.Warn("history record failed", "alert", name, "event", id, "err", err.Error())
	}
}

func (e *Engine) Stats() *Stats {
	e.Lock()
	defer e.Unlock()

	return &Stats{
		Discovered:       e.discovered,
		Active:           len(e.instances),
		Passes:           e.passes,
		Firings:          e.firings,
		Deliveries:       e.deliveries,
		DeliveryFailures: e.failures,
	}
}

func (e *Engine) OnStats(interval time.Duration, fn func(stats *Stats)) {
	e.onStats = fn
	e.emitStats()                      // emit first immediately
	ticker := time.NewTicker(interval) // then emit every interval
	go func() {
		for range ticker.C {
			e.emitStats()
		}
	}()
}

func (e *Engine) emitStats() {
	if e.onStats != nil {
		e.onStats(e.Stats())
	}
}

// Close releases every alert's log sink and seen store.
func (e *Engine) Close() error {
	e.Lock()
	defer e.Unlock()

	var last error
	for _, inst := range e.instances {
		err := inst.Close()
		if err != nil {
			last = err
		}
	}
	return last
}
