package database

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"roadwatch-service/apperrors"
	"roadwatch-service/models"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

var locationTestColumns = []string{
	"id", "grid_key", "latitude", "longitude", "total_potholes", "total_anomalies",
	"highest_severity", "report_count", "first_reported_at", "last_reported_at", "status", "verified_at",
}

func locationRow(id int64, key string, severity, status string) []driver.Value {
	now := time.Now().UTC()
	return []driver.Value{id, key, 42.6977, 23.3219, 2, 1, severity, 3, now, now, status, nil}
}

func TestGetLocations(t *testing.T) {
	it(func() {
		rows := sqlmock.NewRows(locationTestColumns).
			AddRow(locationRow(1, "42.6977:23.3219", "high", "pending")...).
			AddRow(locationRow(2, "42.6981:23.3230", "medium", "assigned")...)
		mock.ExpectQuery("SELECT (.+) FROM aggregated_locations ORDER BY last_reported_at DESC").
			WillReturnRows(rows)

		service := NewLocationsService(db)
		locations, err := service.GetLocations(context.Background(), nil)
		if err != nil {
			t.Fatalf("GetLocations failed: %v", err)
		}
		if len(locations) != 2 {
			t.Fatalf("Got %d locations, expected 2", len(locations))
		}
		if locations[0].HighestSeverity != models.SeverityHigh {
			t.Errorf("Severity %s, expected high", locations[0].HighestSeverity)
		}
		if locations[1].Status != models.LocationAssigned {
			t.Errorf("Status %s, expected assigned", locations[1].Status)
		}
		if locations[0].VerifiedAt != nil {
			t.Errorf("Unverified location carries verified_at %v", locations[0].VerifiedAt)
		}

		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("Unmet expectations: %v", err)
		}
	})
}

func TestGetLocationsFiltered(t *testing.T) {
	it(func() {
		rows := sqlmock.NewRows(locationTestColumns).
			AddRow(locationRow(1, "42.6977:23.3219", "high", "pending")...)
		mock.ExpectQuery("SELECT (.+) FROM aggregated_locations WHERE status = (.+) AND highest_severity = (.+) AND latitude >=").
			WithArgs("pending", "high", 42.0, 43.0, 23.0, 24.0).
			WillReturnRows(rows)

		service := NewLocationsService(db)
		locations, err := service.GetLocations(context.Background(), &models.LocationFilters{
			Status:   "pending",
			Severity: "high",
			ViewPort: &models.ViewPort{LatMin: 42.0, LatMax: 43.0, LonMin: 23.0, LonMax: 24.0},
		})
		if err != nil {
			t.Fatalf("GetLocations failed: %v", err)
		}
		if len(locations) != 1 {
			t.Errorf("Got %d locations, expected 1", len(locations))
		}

		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("Unmet expectations: %v", err)
		}
	})
}

func TestGetLocationsRejectsBadFilters(t *testing.T) {
	it(func() {
		service := NewLocationsService(db)

		_, err := service.GetLocations(context.Background(), &models.LocationFilters{Status: "done"})
		if apperrors.KindOf(err) != apperrors.KindValidation {
			t.Errorf("Bad status filter: expected validation kind, got %v", apperrors.KindOf(err))
		}

		_, err = service.GetLocations(context.Background(), &models.LocationFilters{Severity: "extreme"})
		if apperrors.KindOf(err) != apperrors.KindValidation {
			t.Errorf("Bad severity filter: expected validation kind, got %v", apperrors.KindOf(err))
		}

		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("Storage was touched before validation: %v", err)
		}
	})
}

func TestGetLocationsByGridKeys(t *testing.T) {
	it(func() {
		rows := sqlmock.NewRows(locationTestColumns).
			AddRow(locationRow(1, "42.6977:23.3219", "high", "pending")...)
		mock.ExpectQuery("FROM aggregated_locations WHERE grid_key IN").
			WithArgs("42.6977:23.3219", "42.6981:23.3230").
			WillReturnRows(rows)

		service := NewLocationsService(db)
		locations, err := service.GetLocationsByGridKeys(context.Background(),
			[]string{"42.6977:23.3219", "42.6981:23.3230"})
		if err != nil {
			t.Fatalf("GetLocationsByGridKeys failed: %v", err)
		}
		if len(locations) != 1 || locations[0].GridKey != "42.6977:23.3219" {
			t.Errorf("Unexpected locations %+v", locations)
		}

		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("Unmet expectations: %v", err)
		}
	})
}

func TestGetLocationsByGridKeysEmpty(t *testing.T) {
	it(func() {
		service := NewLocationsService(db)
		locations, err := service.GetLocationsByGridKeys(context.Background(), nil)
		if err != nil {
			t.Fatalf("GetLocationsByGridKeys failed: %v", err)
		}
		if locations != nil {
			t.Errorf("Expected no result for empty key list, got %+v", locations)
		}

		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("Storage was touched with no keys: %v", err)
		}
	})
}

func TestGetMapClusters(t *testing.T) {
	it(func() {
		rows := sqlmock.NewRows([]string{"latitude", "longitude", "total_potholes", "total_anomalies", "highest_severity"}).
			AddRow(42.6977, 23.3219, 3, 1, "high").
			AddRow(42.6978, 23.3220, 1, 0, "low")
		mock.ExpectQuery("SELECT latitude, longitude, total_potholes, total_anomalies, highest_severity").
			WithArgs(42.0, 43.0, 23.0, 24.0).
			WillReturnRows(rows)

		service := NewLocationsService(db)
		results, err := service.GetMapClusters(context.Background(),
			&models.ViewPort{LatMin: 42.0, LatMax: 43.0, LonMin: 23.0, LonMax: 24.0},
			&models.Point{Lat: 42.5, Lon: 23.5})
		if err != nil {
			t.Fatalf("GetMapClusters failed: %v", err)
		}

		var potholes, anomalies int64
		for _, r := range results {
			potholes += r.TotalPotholes
			anomalies += r.TotalAnomalies
		}
		if potholes != 4 || anomalies != 1 {
			t.Errorf("Cluster totals %d/%d, expected 4/1", potholes, anomalies)
		}

		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("Unmet expectations: %v", err)
		}
	})
}
