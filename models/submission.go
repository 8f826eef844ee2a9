package models

import (
	"time"

	"roadwatch-service/apperrors"
)

// Detection tags accepted in a submission payload.
const (
	DetectionTypePothole     = "pothole"
	DetectionTypeRoadAnomaly = "road_anomaly"
)

// Submission is a fully validated, typed submission: required fields checked,
// detections partitioned by tag, severities and timestamps normalized. No
// persistence logic runs before one of these exists.
type Submission struct {
	ReportID   string
	DeviceID   string
	ReportedAt time.Time
	Potholes   []Pothole
	Anomalies  []RoadAnomaly
}

// Parse validates the raw payload and produces the typed submission. All
// validation errors are reported before any storage interaction happens.
func (r *SubmitReportRequest) Parse() (*Submission, error) {
	const op = "submit_report"

	if r.ReportID == "" {
		return nil, apperrors.Validationf(op, "report_id is required")
	}
	if r.DeviceID == "" {
		return nil, apperrors.Validationf(op, "device_id is required")
	}
	if len(r.Anomalies) == 0 {
		return nil, apperrors.Validationf(op, "anomalies list is required")
	}

	now := time.Now().UTC()
	reportedAt := now
	if r.ReportedAt != "" {
		t, err := time.Parse(time.RFC3339, r.ReportedAt)
		if err != nil {
			return nil, apperrors.Validationf(op, "reported_at is not a valid RFC3339 timestamp: %v", err)
		}
		reportedAt = t.UTC()
	}

	sub := &Submission{
		ReportID:   r.ReportID,
		DeviceID:   r.DeviceID,
		ReportedAt: reportedAt,
	}

	for i, d := range r.Anomalies {
		if d.Latitude == nil || d.Longitude == nil {
			return nil, apperrors.Validationf(op, "detection %d: latitude and longitude are required", i)
		}
		severity := ParseSeverity(d.Severity)
		detectedAt := now
		if d.DetectedAt != "" {
			t, err := time.Parse(time.RFC3339, d.DetectedAt)
			if err != nil {
				return nil, apperrors.Validationf(op, "detection %d: detected_at is not a valid RFC3339 timestamp: %v", i, err)
			}
			detectedAt = t.UTC()
		}

		switch d.Type {
		case DetectionTypePothole:
			sub.Potholes = append(sub.Potholes, Pothole{
				Latitude:   *d.Latitude,
				Longitude:  *d.Longitude,
				Severity:   severity,
				DetectedAt: detectedAt,
			})
		case DetectionTypeRoadAnomaly:
			a := RoadAnomaly{
				StartLatitude:  *d.Latitude,
				StartLongitude: *d.Longitude,
				EndLatitude:    d.EndLatitude,
				EndLongitude:   d.EndLongitude,
				Severity:       severity,
				StartedAt:      detectedAt,
			}
			if d.EndedAt != "" {
				t, err := time.Parse(time.RFC3339, d.EndedAt)
				if err != nil {
					return nil, apperrors.Validationf(op, "detection %d: ended_at is not a valid RFC3339 timestamp: %v", i, err)
				}
				te := t.UTC()
				a.EndedAt = &te
			}
			sub.Anomalies = append(sub.Anomalies, a)
		default:
			return nil, apperrors.Validationf(op, "detection %d: unknown type %q", i, d.Type)
		}
	}

	return sub, nil
}
