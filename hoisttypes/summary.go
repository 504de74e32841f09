package hoisttypes

import (
	"fmt"
	"strings"
)

// Summary renders the one-line end-of-batch message shown to users: all
// succeeded, all failed, partial with a grouped reason breakdown, or
// cancelled with the counts reached before the stop.
func (r *BatchResult) Summary() string {
	switch r.Outcome {
	case BatchAllSucceeded:
		return fmt.Sprintf("Uploaded %d file(s)", r.Succeeded)
	case BatchAllFailed:
		return fmt.Sprintf("All %d upload(s) failed: %s", r.Failed, r.reasonLines())
	case BatchCancelled:
		return fmt.Sprintf("Upload cancelled: %d of %d file(s) completed", r.Succeeded, r.TotalFiles)
	default:
		return fmt.Sprintf("Uploaded %d file(s), %d failed: %s",
			r.Succeeded, r.Failed, r.reasonLines())
	}
}

func (r *BatchResult) reasonLines() string {
	if len(r.Reasons) == 0 {
		return "unknown error"
	}
	lines := make([]string, 0, len(r.Reasons))
	for _, reason := range r.Reasons {
		if len(reason.Examples) > 0 {
			lines = append(lines, fmt.Sprintf("%s (%d, e.g. %s)",
				reason.Reason, reason.Count, strings.Join(reason.Examples, ", ")))
		} else {
			lines = append(lines, fmt.Sprintf("%s (%d)", reason.Reason, reason.Count))
		}
	}
	return strings.Join(lines, "; ")
}
