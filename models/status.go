package models

import "strings"

// Severity of a single detection and of an aggregated hotspot.
// Ordered: low < medium < high.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

var severityRank = map[Severity]int{
	SeverityLow:    1,
	SeverityMedium: 2,
	SeverityHigh:   3,
}

// ParseSeverity normalizes a client-supplied severity string. Unknown or
// missing values default to medium.
func ParseSeverity(s string) Severity {
	switch Severity(strings.ToLower(strings.TrimSpace(s))) {
	case SeverityLow:
		return SeverityLow
	case SeverityHigh:
		return SeverityHigh
	default:
		return SeverityMedium
	}
}

func (s Severity) Valid() bool {
	_, ok := severityRank[s]
	return ok
}

// MaxSeverity returns the higher of two severities. Used for the monotonic
// merge of a detection into its grid cell: the cell's severity never
// decreases.
func MaxSeverity(a, b Severity) Severity {
	if severityRank[b] > severityRank[a] {
		return b
	}
	return a
}

// ReportStatus is the lifecycle status of a submitted report.
type ReportStatus string

const (
	ReportPending    ReportStatus = "pending"
	ReportReviewed   ReportStatus = "reviewed"
	ReportAssigned   ReportStatus = "assigned"
	ReportInProgress ReportStatus = "in_progress"
	ReportResolved   ReportStatus = "resolved"
)

func (s ReportStatus) Valid() bool {
	switch s {
	case ReportPending, ReportReviewed, ReportAssigned, ReportInProgress, ReportResolved:
		return true
	}
	return false
}

// LocationStatus is the lifecycle status of an aggregated hotspot.
type LocationStatus string

const (
	LocationPending             LocationStatus = "pending"
	LocationAssigned            LocationStatus = "assigned"
	LocationInProgress          LocationStatus = "in_progress"
	LocationPendingVerification LocationStatus = "pending_verification"
	LocationVerified            LocationStatus = "verified"
	LocationFixed               LocationStatus = "fixed"
)

func (s LocationStatus) Valid() bool {
	switch s {
	case LocationPending, LocationAssigned, LocationInProgress,
		LocationPendingVerification, LocationVerified, LocationFixed:
		return true
	}
	return false
}

// AssignmentStatus is the lifecycle status of a work assignment.
type AssignmentStatus string

const (
	AssignmentAssigned            AssignmentStatus = "assigned"
	AssignmentInProgress          AssignmentStatus = "in_progress"
	AssignmentPendingVerification AssignmentStatus = "pending_verification"
	AssignmentCompleted           AssignmentStatus = "completed"
	AssignmentVerified            AssignmentStatus = "verified"
)

func (s AssignmentStatus) Valid() bool {
	switch s {
	case AssignmentAssigned, AssignmentInProgress, AssignmentPendingVerification,
		AssignmentCompleted, AssignmentVerified:
		return true
	}
	return false
}

// Open reports whether the assignment still occupies its location. A location
// has at most one open assignment at a time.
func (s AssignmentStatus) Open() bool {
	return s != AssignmentCompleted && s != AssignmentVerified
}

// Closes reports whether moving into this status stamps completed_at.
func (s AssignmentStatus) Closes() bool {
	return s == AssignmentCompleted || s == AssignmentVerified
}

// LocationStatusFor derives the hotspot status paired with an assignment
// status change: contractor completion parks the hotspot for admin
// verification, admin verification closes it, anything else mirrors the
// assignment.
func LocationStatusFor(s AssignmentStatus) LocationStatus {
	switch s {
	case AssignmentCompleted:
		return LocationPendingVerification
	case AssignmentVerified:
		return LocationVerified
	default:
		return LocationStatus(s)
	}
}
