package database

import (
	"context"
	"database/sql"
	"time"

	"roadwatch-service/apperrors"
	"roadwatch-service/models"

	"github.com/apex/log"
)

type ReportsService struct {
	db *sql.DB
}

func NewReportsService(db *sql.DB) *ReportsService {
	return &ReportsService{db: db}
}

// SubmitReport ingests one submission batch: validates it, resolves the
// owning user, then inserts the report header, every detection row, and the
// grid merges in a single transaction. Either everything from the submission
// lands or nothing does.
func (s *ReportsService) SubmitReport(ctx context.Context, req *models.SubmitReportRequest, authedUserID *int64) (*models.SubmitReportResponse, error) {
	const op = "submit_report"

	sub, err := req.Parse()
	if err != nil {
		return nil, err
	}

	userID := authedUserID
	if userID == nil {
		// Anonymous submission: fall back to the device's registered owner,
		// which may not exist.
		userID, err = s.lookupDeviceOwner(ctx, sub.DeviceID)
		if err != nil {
			return nil, apperrors.Storage(op, "resolving device owner", err)
		}
	}

	score := models.HealthScore(len(sub.Potholes), len(sub.Anomalies))
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperrors.Storage(op, "starting transaction", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`INSERT
		INTO reports (report_id, user_id, device_id, reported_at, total_potholes, total_anomalies, health_score, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, 'pending')`,
		sub.ReportID, userID, sub.DeviceID, sub.ReportedAt,
		len(sub.Potholes), len(sub.Anomalies), score)
	if err != nil {
		if isDuplicateEntry(err) {
			return nil, apperrors.Conflictf(op, "report %s already submitted", sub.ReportID)
		}
		return nil, apperrors.Storage(op, "inserting report", err)
	}
	dbID, err := result.LastInsertId()
	if err != nil {
		return nil, apperrors.Storage(op, "reading report id", err)
	}

	gridKeys := make(map[string]bool)

	for _, p := range sub.Potholes {
		if _, err := tx.Exec(`INSERT
			INTO potholes (report_ref, latitude, longitude, severity, detected_at)
			VALUES (?, ?, ?, ?, ?)`,
			dbID, p.Latitude, p.Longitude, string(p.Severity), p.DetectedAt); err != nil {
			return nil, apperrors.Storage(op, "inserting pothole", err)
		}
		key, err := aggregateDetection(tx, kindPothole, p.Latitude, p.Longitude, p.Severity, now)
		if err != nil {
			return nil, apperrors.Storage(op, "aggregating pothole", err)
		}
		gridKeys[key] = true
	}

	for _, a := range sub.Anomalies {
		if _, err := tx.Exec(`INSERT
			INTO road_anomalies (report_ref, start_latitude, start_longitude, end_latitude, end_longitude, severity, started_at, ended_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			dbID, a.StartLatitude, a.StartLongitude, a.EndLatitude, a.EndLongitude,
			string(a.Severity), a.StartedAt, a.EndedAt); err != nil {
			return nil, apperrors.Storage(op, "inserting road anomaly", err)
		}
		// Linear anomalies aggregate by their start point only; segments
		// spanning several cells are not split.
		key, err := aggregateDetection(tx, kindAnomaly, a.StartLatitude, a.StartLongitude, a.Severity, now)
		if err != nil {
			return nil, apperrors.Storage(op, "aggregating road anomaly", err)
		}
		gridKeys[key] = true
	}

	if err := tx.Commit(); err != nil {
		return nil, apperrors.Storage(op, "committing transaction", err)
	}

	keys := make([]string, 0, len(gridKeys))
	for k := range gridKeys {
		keys = append(keys, k)
	}

	log.Infof("Ingested report %s (db id %d): %d potholes, %d anomalies, health score %d, %d grid cells",
		sub.ReportID, dbID, len(sub.Potholes), len(sub.Anomalies), score, len(keys))

	return &models.SubmitReportResponse{
		ReportID:       sub.ReportID,
		DBID:           dbID,
		TotalPotholes:  len(sub.Potholes),
		TotalAnomalies: len(sub.Anomalies),
		HealthScore:    score,
		Status:         models.ReportPending,
		GridKeys:       keys,
	}, nil
}

// UpdateReportStatus sets a report's lifecycle status. Only membership in the
// status set is validated; administrative updates may jump the linear order.
func (s *ReportsService) UpdateReportStatus(ctx context.Context, reportID string, status models.ReportStatus) error {
	const op = "update_report_status"

	if !status.Valid() {
		return apperrors.Validationf(op, "invalid report status %q", status)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE reports SET status = ? WHERE report_id = ?`, string(status), reportID)
	if err != nil {
		return apperrors.Storage(op, "updating report status", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Storage(op, "reading rows affected", err)
	}
	if rows == 0 {
		return apperrors.NotFoundf(op, "report %s not found", reportID)
	}
	return nil
}

func (s *ReportsService) lookupDeviceOwner(ctx context.Context, deviceID string) (*int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM users WHERE device_id = ?`, deviceID).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &id, nil
}
