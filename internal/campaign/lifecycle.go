package campaign

import "time"

// nextStatus returns the forward transition due for a campaign that has been
// idle for the given duration, or "" when none applies. The resolution
// window is checked first so a long-idle active campaign resolves in a
// single sweep. Transitions never move backwards and resolved is terminal.
func nextStatus(current Status, idle, monitoringAfter, resolvedAfter time.Duration) Status {
	switch current {
	case StatusActive:
		if idle > resolvedAfter {
			return StatusResolved
		}
		if idle > monitoringAfter {
			return StatusMonitoring
		}
	case StatusMonitoring:
		if idle > resolvedAfter {
			return StatusResolved
		}
	}
	return ""
}
