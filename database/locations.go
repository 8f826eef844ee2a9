package database

import (
	"context"
	"database/sql"
	"strings"

	"roadwatch-service/apperrors"
	"roadwatch-service/models"
)

type LocationsService struct {
	db *sql.DB
}

func NewLocationsService(db *sql.DB) *LocationsService {
	return &LocationsService{db: db}
}

const locationColumns = `id, grid_key, latitude, longitude, total_potholes, total_anomalies,
	highest_severity, report_count, first_reported_at, last_reported_at, status, verified_at`

// GetLocations lists hotspots, optionally narrowed by status, severity and a
// bounding box.
func (s *LocationsService) GetLocations(ctx context.Context, f *models.LocationFilters) ([]models.AggregatedLocation, error) {
	const op = "get_locations"

	sqlStr := `SELECT ` + locationColumns + ` FROM aggregated_locations`
	var (
		where  []string
		params []any
	)
	if f != nil {
		if f.Status != "" {
			if !models.LocationStatus(f.Status).Valid() {
				return nil, apperrors.Validationf(op, "invalid status filter %q", f.Status)
			}
			where = append(where, "status = ?")
			params = append(params, f.Status)
		}
		if f.Severity != "" {
			if !models.Severity(f.Severity).Valid() {
				return nil, apperrors.Validationf(op, "invalid severity filter %q", f.Severity)
			}
			where = append(where, "highest_severity = ?")
			params = append(params, f.Severity)
		}
		if f.ViewPort != nil {
			where = append(where, "latitude >= ? AND latitude <= ? AND longitude >= ? AND longitude <= ?")
			params = append(params, f.ViewPort.LatMin, f.ViewPort.LatMax, f.ViewPort.LonMin, f.ViewPort.LonMax)
		}
	}
	if len(where) > 0 {
		sqlStr += " WHERE " + strings.Join(where, " AND ")
	}
	sqlStr += " ORDER BY last_reported_at DESC"

	rows, err := s.db.QueryContext(ctx, sqlStr, params...)
	if err != nil {
		return nil, apperrors.Storage(op, "querying locations", err)
	}
	defer rows.Close()

	return scanLocations(rows, op)
}

// GetLocationsByGridKeys fetches the hotspot rows for the given grid cells.
// Used for post-submission notifications.
func (s *LocationsService) GetLocationsByGridKeys(ctx context.Context, keys []string) ([]models.AggregatedLocation, error) {
	const op = "get_locations_by_grid_keys"

	if len(keys) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?, ", len(keys))
	placeholders = placeholders[:len(placeholders)-2]
	params := make([]any, len(keys))
	for i, k := range keys {
		params[i] = k
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+locationColumns+` FROM aggregated_locations WHERE grid_key IN (`+placeholders+`)`,
		params...)
	if err != nil {
		return nil, apperrors.Storage(op, "querying locations", err)
	}
	defer rows.Close()

	return scanLocations(rows, op)
}

// GetMapClusters returns hotspots in the viewport clustered into S2 cells at
// a level chosen from the viewport area.
func (s *LocationsService) GetMapClusters(ctx context.Context, vp *models.ViewPort, center *models.Point) ([]models.MapResult, error) {
	const op = "get_map_clusters"

	rows, err := s.db.QueryContext(ctx, `SELECT latitude, longitude, total_potholes, total_anomalies, highest_severity
		FROM aggregated_locations
		WHERE latitude >= ? AND latitude <= ? AND longitude >= ? AND longitude <= ?`,
		vp.LatMin, vp.LatMax, vp.LonMin, vp.LonMax)
	if err != nil {
		return nil, apperrors.Storage(op, "querying locations", err)
	}
	defer rows.Close()

	clusterer := newHotspotClusterer(vp, center)
	for rows.Next() {
		var (
			lat, lon            float64
			potholes, anomalies int64
			severity            string
		)
		if err := rows.Scan(&lat, &lon, &potholes, &anomalies, &severity); err != nil {
			return nil, apperrors.Storage(op, "scanning location row", err)
		}
		clusterer.Add(lat, lon, potholes, anomalies, models.Severity(severity))
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Storage(op, "iterating location rows", err)
	}

	return clusterer.Results(), nil
}

func scanLocations(rows *sql.Rows, op string) ([]models.AggregatedLocation, error) {
	res := []models.AggregatedLocation{}
	for rows.Next() {
		var (
			loc      models.AggregatedLocation
			severity string
			status   string
		)
		if err := rows.Scan(&loc.ID, &loc.GridKey, &loc.Latitude, &loc.Longitude,
			&loc.TotalPotholes, &loc.TotalAnomalies, &severity, &loc.ReportCount,
			&loc.FirstReportedAt, &loc.LastReportedAt, &status, &loc.VerifiedAt); err != nil {
			return nil, apperrors.Storage(op, "scanning location row", err)
		}
		loc.HighestSeverity = models.Severity(severity)
		loc.Status = models.LocationStatus(status)
		res = append(res, loc)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Storage(op, "iterating location rows", err)
	}
	return res, nil
}
