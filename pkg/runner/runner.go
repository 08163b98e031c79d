package runner

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/moonwalker/linewatch/pkg/alerts/engine"
	"github.com/moonwalker/linewatch/pkg/feed"
)

// ErrBusy reports a pass that was skipped because the previous one is
// still running.
var ErrBusy = errors.New("a pass is already running")

// Archiver keeps raw snapshots, nil disables archiving.
type Archiver interface {
	Store(ctx context.Context, snapshot []byte, taken time.Time) (string, error)
}

// Runner drives engine passes: one fetch, stamp, archive, evaluate unit
// per trigger. Triggers come from a cron schedule, a push feed, or a
// single run-once call.
type Runner struct {
	source   feed.Source
	engine   *engine.Engine
	archiver Archiver
	running  atomic.Bool
}

func New(source feed.Source, eng *engine.Engine, archiver Archiver) *Runner {
	return &Runner{source: source, engine: eng, archiver: archiver}
}

// RunOnce executes one pass. Only one pass runs at a time, a call that
// overlaps a running pass returns ErrBusy.
func (r *Runner) RunOnce(ctx context.Context) (engine.PassStats, error) {
	if !r.running.CompareAndSwap(false, true) {
		return engine.PassStats{}, ErrBusy
	}
	defer r.running.Store(false)

	received := time.Now().UTC()
	events, err := r.source.Fetch(ctx)
	if err != nil {
		return engine.PassStats{}, err
	}
	events = feed.Stamp(events, received)

	r.archiveSnapshot(ctx, events, received)

	return r.engine.Run(ctx, events), nil
}

// Schedule runs a pass on the cron spec (descriptors like "@every 30s"
// work) until the context is canceled. An empty spec runs one pass and
// returns. The first pass fires immediately, the schedule takes over
// from there.
func (r *Runner) Schedule(ctx context.Context, spec string) error {
	if len(spec) == 0 {
		_, err := r.RunOnce(ctx)
		return err
	}

	// standard parser with descriptors
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	c := cron.New(cron.WithParser(parser))

	_, err := c.AddFunc(spec, func() { r.tick(ctx) })
	if err != nil {
		return err
	}

	r.tick(ctx)

	c.Start()
	<-ctx.Done()

	stop := c.Stop()
	<-stop.Done()

	return nil
}

// Listen runs one pass per snapshot batch pushed by the source until
// the context is canceled. Batches arrive already stamped.
func (r *Runner) Listen(ctx context.Context, source *feed.NatsSource) error {
	batches := make(chan []feed.Event, 1)

	err := source.Receive(batches)
	if err != nil {
		return err
	}
	defer source.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case events := <-batches:
			r.archiveSnapshot(ctx, events, time.Now().UTC())
			r.engine.Run(ctx, events)
		}
	}
}

func (r *Runner) tick(ctx context.Context) {
	_, err := r.RunOnce(ctx)
	if errors.Is(err, ErrBusy) {
		slog.Warn("previous pass still running, tick skipped")
		return
	}
	if err != nil {
		slog.Error("pass failed", "err", err.Error())
	}
}

func (r *Runner) archiveSnapshot(ctx context.Context, events []feed.Event, taken time.Time) {
	if r.archiver == nil || len(events) == 0 {
		return
	}

	snapshot, err := json.Marshal(events)
	if err != nil {
		slog.Error("snapshot encode failed", "err", err.Error())
		return
	}

	key, err := r.archiver.Store(ctx, snapshot, taken)
	if err != nil {
		slog.Error("snapshot archive failed", "err", err.Error())
		return
	}

	slog.Debug("snapshot archived", "key", key, "events", len(events))
}
