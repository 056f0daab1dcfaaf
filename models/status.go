package models

// StatusTransitions maps a status to the statuses an admin may move a report to.
// An empty table places no constraint on transitions.
type StatusTransitions map[ReportStatus][]ReportStatus

// Allows reports whether a report in status from may be moved to status to
func (t StatusTransitions) Allows(from, to ReportStatus) bool {
	if len(t) == 0 || from == to {
		return true
	}
	for _, next := range t[from] {
		if next == to {
			return true
		}
	}
	return false
}
