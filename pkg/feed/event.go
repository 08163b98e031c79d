package feed

import (
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Event is a single match record as raw JSON, read in place without decoding.
type Event []byte

// identity keys in lookup order, upstream feeds are not consistent about which one they set
var idPaths = []string{"event_id", "match_id", "id"}

func (e Event) Get(path string) gjson.Result {
	return gjson.GetBytes(e, path)
}

// ID returns the stable identity of the event, or "" when none of the
// known identity fields carry a value.
func (e Event) ID() string {
	for _, path := range idPaths {
		v := e.Get(path)
		if !v.Exists() {
			continue
		}
		if s := v.String(); len(s) > 0 {
			return s
		}
	}
	return ""
}

func (e Event) MarshalJSON() ([]byte, error) {
	return e, nil
}

func (e *Event) UnmarshalJSON(data []byte) error {
	*e = data
	return nil
}

func (e Event) String() string {
	return string(e)
}

func (e Event) Map() map[string]interface{} {
	res, ok := gjson.ParseBytes(e).Value().(map[string]interface{})
	if !ok {
		return nil
	}
	return res
}

// Stamp records the batch arrival time on every event under "created_at".
func Stamp(events []Event, received time.Time) []Event {
	ts := received.UTC().Format(time.RFC3339)
	for i, e := range events {
		stamped, err := sjson.SetBytes(e, "created_at", ts)
		if err != nil {
			continue
		}
		events[i] = stamped
	}
	return events
}
