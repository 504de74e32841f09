package testutil

import "github.com/quaystone/hoist/hoisttypes"

// ProgressRecorder captures progress callbacks for assertions.
type ProgressRecorder struct {
	Events []hoisttypes.ProgressEvent
}

// Func returns a ProgressFunc that appends every event to the recorder.
func (r *ProgressRecorder) Func() hoisttypes.ProgressFunc {
	return func(ev hoisttypes.ProgressEvent) {
		r.Events = append(r.Events, ev)
	}
}

// Last returns the most recent event, or the zero event if none were seen.
func (r *ProgressRecorder) Last() hoisttypes.ProgressEvent {
	if len(r.Events) == 0 {
		return hoisttypes.ProgressEvent{}
	}
	return r.Events[len(r.Events)-1]
}

// Reset clears the recorded events.
func (r *ProgressRecorder) Reset() {
	r.Events = nil
}
