package alerts

import (
	"log/slog"

	"github.com/moonwalker/linewatch/pkg/feed"
)

// Payload is the structured result of a met alert condition. It carries
// at least a "type" key holding the alert name, plus whatever detail
// fields the alert wants the notification to show. One payload lives for
// one evaluation, the engine hands it to formatting and drops it.
type Payload map[string]interface{}

// Alert is the capability every detection rule satisfies.
//
// Check is a pure function of the alert's resolved parameters and the
// given event: no side effects besides logging, nil payload when the
// condition is not met. Check may return an error or panic on malformed
// data. Isolation is SafeCheck's job and the engine never calls Check
// directly.
type Alert interface {
	Name() string
	Check(evt feed.Event) (Payload, error)
}

// Config carries everything an alert constructor receives: the resolved
// parameters and the alert's dedicated log sink. Constructors validate
// their own parameter types, the resolver doesn't.
type Config struct {
	Params Params
	Logger *slog.Logger
}

// Descriptor identifies one registered alert implementation.
// Immutable once registered.
type Descriptor struct {
	Name     string
	Defaults Params
	New      func(Config) (Alert, error)
}
