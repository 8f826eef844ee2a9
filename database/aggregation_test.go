package database

import (
	"testing"
	"time"

	"roadwatch-service/models"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
)

var cellColumns = []string{"id", "highest_severity"}

func TestAggregateDetectionNewCell(t *testing.T) {
	it(func() {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id, highest_severity FROM aggregated_locations").
			WithArgs("42.6977:23.3219").
			WillReturnRows(sqlmock.NewRows(cellColumns))
		mock.ExpectExec("INSERT INTO aggregated_locations").
			WithArgs("42.6977:23.3219", 42.6977, 23.3219, 1, 0, "high", sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(7, 1))

		tx, err := db.Begin()
		if err != nil {
			t.Fatalf("Begin failed: %v", err)
		}

		key, err := aggregateDetection(tx, kindPothole, 42.6977, 23.3219, models.SeverityHigh, time.Now().UTC())
		if err != nil {
			t.Fatalf("aggregateDetection failed: %v", err)
		}
		if key != "42.6977:23.3219" {
			t.Errorf("Grid key %q, expected 42.6977:23.3219", key)
		}

		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("Unmet expectations: %v", err)
		}
	})
}

func TestAggregateDetectionMergesExistingCell(t *testing.T) {
	it(func() {
		testCases := []struct {
			name             string
			kind             detectionKind
			existing         string
			incoming         models.Severity
			expectedSeverity string
			expectedPotholes int
			expectedAnomaly  int
		}{
			{
				name: "Severity escalates",
				kind: kindPothole, existing: "medium", incoming: models.SeverityHigh,
				expectedSeverity: "high", expectedPotholes: 1, expectedAnomaly: 0,
			},
			{
				name: "Severity never decreases",
				kind: kindAnomaly, existing: "high", incoming: models.SeverityLow,
				expectedSeverity: "high", expectedPotholes: 0, expectedAnomaly: 1,
			},
			{
				name: "Equal severity kept",
				kind: kindAnomaly, existing: "medium", incoming: models.SeverityMedium,
				expectedSeverity: "medium", expectedPotholes: 0, expectedAnomaly: 1,
			},
		}

		for _, tc := range testCases {
			mock.ExpectBegin()
			mock.ExpectQuery("SELECT id, highest_severity FROM aggregated_locations").
				WithArgs("42.6977:23.3219").
				WillReturnRows(sqlmock.NewRows(cellColumns).AddRow(7, tc.existing))
			mock.ExpectExec("UPDATE aggregated_locations").
				WithArgs(tc.expectedPotholes, tc.expectedAnomaly, tc.expectedSeverity, sqlmock.AnyArg(), 7).
				WillReturnResult(sqlmock.NewResult(0, 1))

			tx, err := db.Begin()
			if err != nil {
				t.Fatalf("%s: Begin failed: %v", tc.name, err)
			}
			if _, err := aggregateDetection(tx, tc.kind, 42.6977, 23.3219, tc.incoming, time.Now().UTC()); err != nil {
				t.Errorf("%s: aggregateDetection failed: %v", tc.name, err)
			}
		}

		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("Unmet expectations: %v", err)
		}
	})
}

func TestAggregateDetectionLosesInsertRace(t *testing.T) {
	it(func() {
		// A concurrent transaction created the cell between our lookup and
		// insert; the duplicate-entry error must be retried as an update.
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id, highest_severity FROM aggregated_locations").
			WithArgs("42.6977:23.3219").
			WillReturnRows(sqlmock.NewRows(cellColumns))
		mock.ExpectExec("INSERT INTO aggregated_locations").
			WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry '42.6977:23.3219'"})
		mock.ExpectQuery("SELECT id, highest_severity FROM aggregated_locations").
			WithArgs("42.6977:23.3219").
			WillReturnRows(sqlmock.NewRows(cellColumns).AddRow(7, "low"))
		mock.ExpectExec("UPDATE aggregated_locations").
			WithArgs(1, 0, "medium", sqlmock.AnyArg(), 7).
			WillReturnResult(sqlmock.NewResult(0, 1))

		tx, err := db.Begin()
		if err != nil {
			t.Fatalf("Begin failed: %v", err)
		}
		if _, err := aggregateDetection(tx, kindPothole, 42.6977, 23.3219, models.SeverityMedium, time.Now().UTC()); err != nil {
			t.Fatalf("aggregateDetection failed: %v", err)
		}

		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("Unmet expectations: %v", err)
		}
	})
}
