package models

import (
	"time"
)

// Report is one ingestion batch. Immutable after creation except status.
type Report struct {
	ID             int64        `json:"id"`
	ReportID       string       `json:"report_id"`
	UserID         *int64       `json:"user_id,omitempty"`
	DeviceID       string       `json:"device_id"`
	ReportedAt     time.Time    `json:"reported_at"`
	TotalPotholes  int          `json:"total_potholes"`
	TotalAnomalies int          `json:"total_anomalies"`
	HealthScore    int          `json:"health_score"`
	Status         ReportStatus `json:"status"`
	CreatedAt      time.Time    `json:"created_at"`
}

// Pothole is a point detection belonging to one report.
type Pothole struct {
	ID         int64     `json:"id"`
	ReportRef  int64     `json:"report_ref"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Severity   Severity  `json:"severity"`
	DetectedAt time.Time `json:"detected_at"`
}

// RoadAnomaly is a linear detection (patchy road segment) belonging to one
// report. Only the start point participates in grid aggregation.
type RoadAnomaly struct {
	ID             int64     `json:"id"`
	ReportRef      int64     `json:"report_ref"`
	StartLatitude  float64   `json:"start_latitude"`
	StartLongitude float64   `json:"start_longitude"`
	EndLatitude    *float64  `json:"end_latitude,omitempty"`
	EndLongitude   *float64  `json:"end_longitude,omitempty"`
	Severity       Severity  `json:"severity"`
	StartedAt      time.Time `json:"started_at"`
	EndedAt        *time.Time `json:"ended_at,omitempty"`
}

// AggregatedLocation is one hotspot grid cell. The grid key is its sole
// identity: all detections rounding to the same coordinate bucket merge into
// the same row.
type AggregatedLocation struct {
	ID              int64          `json:"id"`
	GridKey         string         `json:"grid_key"`
	Latitude        float64        `json:"latitude"`
	Longitude       float64        `json:"longitude"`
	TotalPotholes   int            `json:"total_potholes"`
	TotalAnomalies  int            `json:"total_anomalies"`
	HighestSeverity Severity       `json:"highest_severity"`
	ReportCount     int            `json:"report_count"`
	FirstReportedAt time.Time      `json:"first_reported_at"`
	LastReportedAt  time.Time      `json:"last_reported_at"`
	Status          LocationStatus `json:"status"`
	VerifiedAt      *time.Time     `json:"verified_at,omitempty"`
}

// WorkAssignment links one hotspot to one contractor.
type WorkAssignment struct {
	ID           int64            `json:"id"`
	LocationID   int64            `json:"location_id"`
	ContractorID int64            `json:"contractor_id"`
	AssignedBy   *int64           `json:"assigned_by,omitempty"`
	DueDate      *time.Time       `json:"due_date,omitempty"`
	Status       AssignmentStatus `json:"status"`
	Notes        string           `json:"notes"`
	CompletedAt  *time.Time       `json:"completed_at,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// Contractor is a servicing entity referenced by work assignments.
type Contractor struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	ContactEmail string    `json:"contact_email"`
	Phone        string    `json:"phone"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// DetectionEntry is one tagged entry of a submission payload, either a
// "pothole" or a "road_anomaly".
type DetectionEntry struct {
	Type         string   `json:"type"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	EndLatitude  *float64 `json:"end_latitude,omitempty"`
	EndLongitude *float64 `json:"end_longitude,omitempty"`
	Severity     string   `json:"severity,omitempty"`
	DetectedAt   string   `json:"detected_at,omitempty"`
	EndedAt      string   `json:"ended_at,omitempty"`
}

// SubmitReportRequest is the raw submission payload.
type SubmitReportRequest struct {
	ReportID   string           `json:"report_id"`
	DeviceID   string           `json:"device_id"`
	ReportedAt string           `json:"reported_at,omitempty"`
	Anomalies  []DetectionEntry `json:"anomalies"`
}

// SubmitReportResponse is returned on a successful submission. GridKeys
// carries the affected hotspot cells for post-commit notifications; it is not
// part of the wire response.
type SubmitReportResponse struct {
	ReportID       string       `json:"reportId"`
	DBID           int64        `json:"dbId"`
	TotalPotholes  int          `json:"totalPotholes"`
	TotalAnomalies int          `json:"totalAnomalies"`
	HealthScore    int          `json:"healthScore"`
	Status         ReportStatus `json:"status"`

	GridKeys []string `json:"-"`
}

// ViewPort is a map bounding box.
type ViewPort struct {
	LatMin float64 `json:"latmin"`
	LonMin float64 `json:"lonmin"`
	LatMax float64 `json:"latmax"`
	LonMax float64 `json:"lonmax"`
}

type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// LocationFilters narrows hotspot listings.
type LocationFilters struct {
	Status   string
	Severity string
	ViewPort *ViewPort
}

type LocationsResponse struct {
	Locations []AggregatedLocation `json:"locations"`
	Count     int                  `json:"count"`
}

// MapResult is one cluster on the admin map.
type MapResult struct {
	Latitude        float64  `json:"latitude"`
	Longitude       float64  `json:"longitude"`
	Count           int64    `json:"count"`
	TotalPotholes   int64    `json:"total_potholes"`
	TotalAnomalies  int64    `json:"total_anomalies"`
	HighestSeverity Severity `json:"highest_severity"`
}

type MapResponse struct {
	Results []MapResult `json:"results"`
	Count   int         `json:"count"`
}

// AssignRequest creates or refreshes the open assignment of a hotspot.
type AssignRequest struct {
	LocationID   int64  `json:"locationId"`
	ContractorID int64  `json:"contractorId"`
	DueDate      string `json:"due_date,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

type AssignResponse struct {
	AssignmentID int64 `json:"assignmentId"`
}

// BatchAssignRequest assigns one contractor to several hotspots atomically.
type BatchAssignRequest struct {
	LocationIDs  []int64 `json:"locationIds"`
	ContractorID int64   `json:"contractorId"`
	DueDate      string  `json:"due_date,omitempty"`
	Notes        string  `json:"notes,omitempty"`
}

type BatchAssignResponse struct {
	AssignmentIDs []int64 `json:"assignmentIds"`
	Count         int     `json:"count"`
}

// UpdateAssignmentRequest changes an assignment's status and/or notes.
type UpdateAssignmentRequest struct {
	Status string  `json:"status,omitempty"`
	Notes  *string `json:"notes,omitempty"`
}

// VerifyResponse reports the two effects of a verification separately: the
// hotspot update is mandatory, the assignment update is best-effort.
type VerifyResponse struct {
	LocationUpdated   bool `json:"locationUpdated"`
	AssignmentUpdated bool `json:"assignmentUpdated"`
}

type BatchVerifyRequest struct {
	LocationIDs []int64 `json:"locationIds"`
}

type BatchVerifyResponse struct {
	LocationsUpdated   int `json:"locationsUpdated"`
	AssignmentsUpdated int `json:"assignmentsUpdated"`
}

type RejectVerificationRequest struct {
	Reason string `json:"reason,omitempty"`
}

// UpdateReportStatusRequest moves a report through its lifecycle. Only
// membership in the status set is validated.
type UpdateReportStatusRequest struct {
	Status string `json:"status"`
}

type CreateContractorRequest struct {
	Name         string `json:"name"`
	ContactEmail string `json:"contact_email,omitempty"`
	Phone        string `json:"phone,omitempty"`
}

type ContractorsResponse struct {
	Contractors []Contractor `json:"contractors"`
	Count       int          `json:"count"`
}

// BroadcastMessage is the envelope for websocket pushes.
type BroadcastMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// HotspotEvent is published to the event exchange when a hotspot changes.
type HotspotEvent struct {
	LocationID      int64          `json:"location_id"`
	GridKey         string         `json:"grid_key"`
	Latitude        float64        `json:"latitude"`
	Longitude       float64        `json:"longitude"`
	TotalPotholes   int            `json:"total_potholes"`
	TotalAnomalies  int            `json:"total_anomalies"`
	HighestSeverity Severity       `json:"highest_severity"`
	ReportCount     int            `json:"report_count"`
	Status          LocationStatus `json:"status"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// HealthScore computes the 0-100 road-health score of a submission. Potholes
// penalize three times as heavily as anomalies; the score floors at zero.
func HealthScore(potholes, anomalies int) int {
	score := 100 - 15*potholes - 5*anomalies
	if score < 0 {
		return 0
	}
	return score
}
