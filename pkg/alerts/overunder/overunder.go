package overunder

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/moonwalker/linewatch/pkg/alerts"
	"github.com/moonwalker/linewatch/pkg/feed"
)

const Name = "OU3"

// 2 first half, 3 half-time break, 4 second half
var liveStatuses = map[int64]bool{2: true, 3: true, 4: true}

// Alert fires when a live match carries an over/under line at or above
// the configured threshold.
type Alert struct {
	threshold float64
	log       *slog.Logger
}

func Descriptor() *alerts.Descriptor {
	return &alerts.Descriptor{
		Name:     Name,
		Defaults: alerts.Params{"threshold": 3.0},
		New:      New,
	}
}

func New(cfg alerts.Config) (alerts.Alert, error) {
	threshold := cfg.Params.Float("threshold", 3.0)
	if threshold <= 0 {
		return nil, fmt.Errorf("threshold must be positive, got %v", threshold)
	}
	return &Alert{threshold: threshold, log: cfg.Logger}, nil
}

func (a *Alert) Name() string {
	return Name
}

func (a *Alert) Check(evt feed.Event) (alerts.Payload, error) {
	// status arrives as number or numeric string depending on the feed
	status := evt.Get("status_id")
	if !status.Exists() {
		return nil, nil
	}
	if !liveStatuses[status.Int()] {
		a.log.Debug("match not live", "event", evt.ID(), "status", status.String())
		return nil, nil
	}

	entry, ok := latestLine(evt)
	if !ok {
		a.log.Debug("no over/under line in any known shape", "event", evt.ID())
		return nil, nil
	}
	if entry.line < a.threshold {
		a.log.Debug("line below threshold", "event", evt.ID(), "line", entry.line, "threshold", a.threshold)
		return nil, nil
	}

	p := alerts.Payload{
		"type":      Name,
		"line":      entry.line,
		"value":     entry.line,
		"threshold": a.threshold,
		"detail":    fmt.Sprintf("Over/Under Line: %.2f", entry.line),
	}
	if entry.odds {
		p["over"] = entry.over
		p["under"] = entry.under
	}
	if entry.stamped {
		p["timestamp"] = entry.timestamp
	}

	return p, nil
}

type lineEntry struct {
	line      float64
	over      float64
	under     float64
	timestamp int64
	odds      bool
	stamped   bool
}

// latestLine extracts the current over/under line, trying the feed
// shapes in order: the timestamped over_under map, the normalized
// markets array, the raw bs array, then the flat betting fallback.
func latestLine(evt feed.Event) (lineEntry, bool) {
	if e, ok := fromOverUnderMap(evt.Get("odds.over_under")); ok {
		return e, true
	}
	if e, ok := fromMarket(evt.Get(`odds.markets.#(type=="OVER_UNDER")`)); ok {
		return e, true
	}
	if e, ok := fromBetSlice(evt.Get("odds.bs.0")); ok {
		return e, true
	}
	if line, ok := floatVal(evt.Get("betting.over_under.line")); ok {
		return lineEntry{line: line}, true
	}
	return lineEntry{}, false
}

// fromOverUnderMap picks the newest entry of the over_under map.
// Ties on timestamp resolve to the lexicographically smallest line key.
func fromOverUnderMap(ou gjson.Result) (lineEntry, bool) {
	if !ou.IsObject() {
		return lineEntry{}, false
	}

	var bestKey string
	var best gjson.Result
	var bestTS int64
	found := false

	ou.ForEach(func(k, v gjson.Result) bool {
		ts := v.Get("timestamp").Int()
		take := !found || ts > bestTS || (ts == bestTS && k.String() < bestKey)
		if take {
			found = true
			bestKey, best, bestTS = k.String(), v, ts
		}
		return true
	})

	if !found {
		return lineEntry{}, false
	}

	line, ok := floatVal(best.Get("line"))
	if !ok {
		// entries are keyed by line, the key doubles as fallback
		f, err := strconv.ParseFloat(bestKey, 64)
		if err != nil {
			return lineEntry{}, false
		}
		line = f
	}

	return lineEntry{
		line:      line,
		over:      best.Get("over").Float(),
		under:     best.Get("under").Float(),
		timestamp: bestTS,
		odds:      true,
		stamped:   true,
	}, true
}

func fromMarket(m gjson.Result) (lineEntry, bool) {
	line, ok := floatVal(m.Get("line"))
	if !ok {
		return lineEntry{}, false
	}

	e := lineEntry{line: line}
	if m.Get("over").Exists() && m.Get("under").Exists() {
		e.over = m.Get("over").Float()
		e.under = m.Get("under").Float()
		e.odds = true
	}

	return e, true
}

// fromBetSlice reads the raw feed's bs entry, an array laid out as
// [timestamp, match minute, over, line, under].
func fromBetSlice(first gjson.Result) (lineEntry, bool) {
	if !first.IsArray() {
		return lineEntry{}, false
	}
	arr := first.Array()
	if len(arr) < 5 {
		return lineEntry{}, false
	}

	line, ok := floatVal(arr[3])
	if !ok {
		return lineEntry{}, false
	}

	return lineEntry{
		line:      line,
		over:      arr[2].Float(),
		under:     arr[4].Float(),
		timestamp: arr[0].Int(),
		odds:      true,
		stamped:   true,
	}, true
}

// floatVal converts a result to float64, rejecting anything that isn't
// a number or a numeric string so a garbage line falls through to the
// next extraction shape.
func floatVal(r gjson.Result) (float64, bool) {
	switch r.Type {
	case gjson.Number:
		return r.Float(), true
	case gjson.String:
		f, err := strconv.ParseFloat(r.Str, 64)
		return f, err == nil
	}
	return 0, false
}
