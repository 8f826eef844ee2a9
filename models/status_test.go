package models

import (
	"testing"
)

func TestMaxSeverity(t *testing.T) {
	testCases := []struct {
		a, b     Severity
		expected Severity
	}{
		{SeverityLow, SeverityLow, SeverityLow},
		{SeverityLow, SeverityMedium, SeverityMedium},
		{SeverityMedium, SeverityLow, SeverityMedium},
		{SeverityLow, SeverityHigh, SeverityHigh},
		{SeverityHigh, SeverityLow, SeverityHigh},
		{SeverityMedium, SeverityHigh, SeverityHigh},
		{SeverityHigh, SeverityMedium, SeverityHigh},
		{SeverityHigh, SeverityHigh, SeverityHigh},
	}

	for _, tc := range testCases {
		if got := MaxSeverity(tc.a, tc.b); got != tc.expected {
			t.Errorf("MaxSeverity(%s, %s) = %s, expected %s", tc.a, tc.b, got, tc.expected)
		}
	}
}

func TestMaxSeverityOrderInsensitive(t *testing.T) {
	// The highest severity of a merge sequence must not depend on the order
	// detections arrive in.
	sequences := [][]Severity{
		{SeverityLow, SeverityHigh, SeverityMedium},
		{SeverityHigh, SeverityLow, SeverityMedium},
		{SeverityMedium, SeverityLow, SeverityHigh},
	}
	for _, seq := range sequences {
		acc := seq[0]
		for _, s := range seq[1:] {
			acc = MaxSeverity(acc, s)
		}
		if acc != SeverityHigh {
			t.Errorf("Merging %v yielded %s, expected high", seq, acc)
		}
	}
}

func TestParseSeverity(t *testing.T) {
	testCases := []struct {
		input    string
		expected Severity
	}{
		{"low", SeverityLow},
		{"Low", SeverityLow},
		{"HIGH", SeverityHigh},
		{" medium ", SeverityMedium},
		{"", SeverityMedium},
		{"bogus", SeverityMedium},
	}

	for _, tc := range testCases {
		if got := ParseSeverity(tc.input); got != tc.expected {
			t.Errorf("ParseSeverity(%q) = %s, expected %s", tc.input, got, tc.expected)
		}
	}
}

func TestLocationStatusFor(t *testing.T) {
	testCases := []struct {
		assignment AssignmentStatus
		expected   LocationStatus
	}{
		{AssignmentAssigned, LocationAssigned},
		{AssignmentInProgress, LocationInProgress},
		{AssignmentPendingVerification, LocationPendingVerification},
		{AssignmentCompleted, LocationPendingVerification},
		{AssignmentVerified, LocationVerified},
	}

	for _, tc := range testCases {
		if got := LocationStatusFor(tc.assignment); got != tc.expected {
			t.Errorf("LocationStatusFor(%s) = %s, expected %s", tc.assignment, got, tc.expected)
		}
	}
}

func TestAssignmentStatusOpen(t *testing.T) {
	open := []AssignmentStatus{AssignmentAssigned, AssignmentInProgress, AssignmentPendingVerification}
	for _, s := range open {
		if !s.Open() {
			t.Errorf("%s should be open", s)
		}
		if s.Closes() {
			t.Errorf("%s should not stamp completed_at", s)
		}
	}
	closed := []AssignmentStatus{AssignmentCompleted, AssignmentVerified}
	for _, s := range closed {
		if s.Open() {
			t.Errorf("%s should not be open", s)
		}
		if !s.Closes() {
			t.Errorf("%s should stamp completed_at", s)
		}
	}
}

func TestStatusValidity(t *testing.T) {
	if ReportStatus("bogus").Valid() {
		t.Error("bogus report status accepted")
	}
	if LocationStatus("done").Valid() {
		t.Error("bogus location status accepted")
	}
	if AssignmentStatus("open").Valid() {
		t.Error("bogus assignment status accepted")
	}
	if !LocationStatus("fixed").Valid() {
		t.Error("fixed location status rejected")
	}
}
