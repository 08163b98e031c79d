package feed

import (
	"errors"

	"github.com/tidwall/gjson"
)

// Events splits a snapshot payload into individual event records.
// The payload is either a {"matches": [...]} wrapper or a bare array,
// input order is preserved exactly.
func Events(data []byte) ([]Event, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("snapshot is not valid json")
	}

	root := gjson.ParseBytes(data)
	arr := root
	if root.IsObject() {
		arr = root.Get("matches")
		if !arr.Exists() {
			return nil, errors.New(`snapshot has no "matches" array`)
		}
	}
	if !arr.IsArray() {
		return nil, errors.New("snapshot is not an array of matches")
	}

	events := make([]Event, 0)
	arr.ForEach(func(_, m gjson.Result) bool {
		events = append(events, Event(m.Raw))
		return true
	})

	return events, nil
}
