package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"roadwatch-service/models"
	"roadwatch-service/utils"

	"github.com/apex/log"
	"github.com/go-sql-driver/mysql"
)

type detectionKind int

const (
	kindPothole detectionKind = iota
	kindAnomaly
)

// mysqlDuplicateEntry is the MySQL error number for a unique-key violation.
const mysqlDuplicateEntry = 1062

func isDuplicateEntry(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

// aggregateDetection merges one detection into its grid cell inside tx. The
// cell is found or created by grid key; counts and report_count are additive,
// highest_severity only ever goes up, and the cell's lifecycle status is left
// alone. Each detection must be aggregated exactly once: replaying one
// double-counts.
//
// A concurrent submission can insert the same fresh grid key first; the
// unique index rejects our insert with a duplicate-entry error and the merge
// is retried as an update of the row that won the race.
func aggregateDetection(tx *sql.Tx, kind detectionKind, lat, lon float64, severity models.Severity, now time.Time) (string, error) {
	key := utils.GridKey(lat, lon)

	merged, err := mergeIntoCell(tx, key, kind, severity, now)
	if err != nil {
		return "", err
	}
	if merged {
		return key, nil
	}

	// First detection landing in this cell.
	potholes, anomalies := kindCounts(kind)
	_, err = tx.Exec(`INSERT
		INTO aggregated_locations (grid_key, latitude, longitude, total_potholes, total_anomalies,
			highest_severity, report_count, first_reported_at, last_reported_at, status)
		VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?, 'pending')`,
		key, lat, lon, potholes, anomalies, string(severity), now, now)
	if err == nil {
		return key, nil
	}
	if !isDuplicateEntry(err) {
		return "", fmt.Errorf("inserting grid cell %s: %w", key, err)
	}

	// Lost the insert race; the cell exists now.
	log.Infof("Grid cell %s created concurrently, retrying as update", key)
	merged, err = mergeIntoCell(tx, key, kind, severity, now)
	if err != nil {
		return "", err
	}
	if !merged {
		return "", fmt.Errorf("grid cell %s disappeared during upsert", key)
	}
	return key, nil
}

// mergeIntoCell updates an existing cell, returning false when no row exists
// for the key. The row is locked for the remainder of the transaction so
// concurrent merges into the same cell serialize instead of losing updates.
func mergeIntoCell(tx *sql.Tx, key string, kind detectionKind, severity models.Severity, now time.Time) (bool, error) {
	var (
		id      int64
		current string
	)
	err := tx.QueryRow(`SELECT id, highest_severity
		FROM aggregated_locations
		WHERE grid_key = ?
		FOR UPDATE`, key).Scan(&id, &current)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("looking up grid cell %s: %w", key, err)
	}

	highest := models.MaxSeverity(models.Severity(current), severity)
	potholes, anomalies := kindCounts(kind)

	_, err = tx.Exec(`UPDATE aggregated_locations
		SET total_potholes = total_potholes + ?,
			total_anomalies = total_anomalies + ?,
			highest_severity = ?,
			report_count = report_count + 1,
			last_reported_at = ?
		WHERE id = ?`,
		potholes, anomalies, string(highest), now, id)
	if err != nil {
		return false, fmt.Errorf("merging into grid cell %s: %w", key, err)
	}
	return true, nil
}

func kindCounts(kind detectionKind) (potholes, anomalies int) {
	if kind == kindPothole {
		return 1, 0
	}
	return 0, 1
}
