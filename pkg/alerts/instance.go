package alerts

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/moonwalker/linewatch/pkg/seenstore"
)

// Instance is one activated alert: the constructed rule, its dedicated
// append-only log sink and its owned seen store.
type Instance struct {
	Alert Alert
	Log   *slog.Logger
	Seen  seenstore.Store

	sink io.Closer
}

// NewInstance activates a registered alert: opens its log sink, runs
// the constructor with the resolved params, attaches the seen store.
// A sink that cannot be opened degrades to the default logger so the
// alert keeps working without its dedicated log file. A constructor
// error aborts the activation.
func NewInstance(d *Descriptor, params Params, logDir string, seen seenstore.Store) (*Instance, error) {
	log, sink, err := NewLogSink(logDir, d.Name)
	if err != nil {
		slog.Warn("alert log sink unavailable, using default logger", "alert", d.Name, "err", err.Error())
		log = slog.Default()
		sink = nil
	}

	alert, err := d.New(Config{Params: params, Logger: log})
	if err != nil {
		if sink != nil {
			sink.Close()
		}
		return nil, err
	}

	return &Instance{Alert: alert, Log: log, Seen: seen, sink: sink}, nil
}

func (i *Instance) Close() error {
	if i.sink != nil {
		i.sink.Close()
	}
	if i.Seen != nil {
		return i.Seen.Close()
	}
	return nil
}

// NewLogSink opens the per-alert log at <dir>/<name>.log, one timestamped
// entry per firing and per caught evaluation error.
func NewLogSink(dir, name string) (*slog.Logger, io.Closer, error) {
	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.OpenFile(filepath.Join(dir, name+".log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, err
	}

	return slog.New(slog.NewTextHandler(f, nil)), f, nil
}
