package models

import (
	"testing"

	"roadwatch-service/apperrors"
)

func f(v float64) *float64 { return &v }

func TestHealthScore(t *testing.T) {
	testCases := []struct {
		potholes, anomalies int
		expected            int
	}{
		{0, 0, 100},
		{1, 0, 85},
		{0, 1, 95},
		{1, 1, 80},
		{3, 2, 45},
		{6, 2, 0},
		{7, 0, 0},
		{0, 20, 0},
		{100, 100, 0},
	}

	for _, tc := range testCases {
		got := HealthScore(tc.potholes, tc.anomalies)
		if got != tc.expected {
			t.Errorf("HealthScore(%d, %d) = %d, expected %d", tc.potholes, tc.anomalies, got, tc.expected)
		}
		if got < 0 || got > 100 {
			t.Errorf("HealthScore(%d, %d) = %d out of [0, 100]", tc.potholes, tc.anomalies, got)
		}
	}
}

func TestParseSubmission(t *testing.T) {
	valid := func() *SubmitReportRequest {
		return &SubmitReportRequest{
			ReportID: "r-100",
			DeviceID: "dev-1",
			Anomalies: []DetectionEntry{
				{Type: DetectionTypePothole, Latitude: f(42.6977), Longitude: f(23.3219), Severity: "high"},
				{Type: DetectionTypeRoadAnomaly, Latitude: f(42.6978), Longitude: f(23.3220),
					EndLatitude: f(42.6980), EndLongitude: f(23.3224), Severity: "low"},
			},
		}
	}

	t.Run("Valid payload", func(t *testing.T) {
		sub, err := valid().Parse()
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if len(sub.Potholes) != 1 || len(sub.Anomalies) != 1 {
			t.Errorf("Partitioned %d potholes, %d anomalies, expected 1 and 1", len(sub.Potholes), len(sub.Anomalies))
		}
		if sub.Potholes[0].Severity != SeverityHigh {
			t.Errorf("Pothole severity %s, expected high", sub.Potholes[0].Severity)
		}
		if sub.Anomalies[0].Severity != SeverityLow {
			t.Errorf("Anomaly severity %s, expected low", sub.Anomalies[0].Severity)
		}
	})

	t.Run("Missing severity defaults to medium", func(t *testing.T) {
		req := valid()
		req.Anomalies[0].Severity = ""
		sub, err := req.Parse()
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if sub.Potholes[0].Severity != SeverityMedium {
			t.Errorf("Severity %s, expected medium default", sub.Potholes[0].Severity)
		}
	})

	rejections := []struct {
		name   string
		mutate func(*SubmitReportRequest)
	}{
		{"Missing report_id", func(r *SubmitReportRequest) { r.ReportID = "" }},
		{"Missing device_id", func(r *SubmitReportRequest) { r.DeviceID = "" }},
		{"Empty detections", func(r *SubmitReportRequest) { r.Anomalies = nil }},
		{"Missing coordinates", func(r *SubmitReportRequest) { r.Anomalies[0].Latitude = nil }},
		{"Unknown detection type", func(r *SubmitReportRequest) { r.Anomalies[0].Type = "sinkhole" }},
		{"Bad timestamp", func(r *SubmitReportRequest) { r.Anomalies[0].DetectedAt = "yesterday" }},
	}

	for _, tc := range rejections {
		t.Run(tc.name, func(t *testing.T) {
			req := valid()
			tc.mutate(req)
			if _, err := req.Parse(); err == nil {
				t.Fatal("Expected validation error, got none")
			} else if apperrors.KindOf(err) != apperrors.KindValidation {
				t.Errorf("Expected validation kind, got %v", apperrors.KindOf(err))
			}
		})
	}
}
