package alerts

import (
	"runtime/debug"

	"github.com/moonwalker/linewatch/pkg/feed"
)

// SafeCheck invokes the alert's Check inside an isolation boundary.
// An error return or a panic is logged to the alert's own sink with the
// event id and treated as an unmet condition, so one alert's defect
// never keeps another alert, or another event, from being evaluated.
func SafeCheck(inst *Instance, evt feed.Event) (payload Payload) {
	defer func() {
		if r := recover(); r != nil {
			payload = nil
			inst.Log.Error("alert check panicked",
				"alert", inst.Alert.Name(),
				"event", evt.ID(),
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
	}()

	res, err := inst.Alert.Check(evt)
	if err != nil {
		inst.Log.Error("alert check failed",
			"alert", inst.Alert.Name(),
			"event", evt.ID(),
			"err", err.Error(),
		)
		return nil
	}

	return res
}
