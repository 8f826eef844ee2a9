package database

import (
	"database/sql"
	"fmt"

	"github.com/apex/log"
)

// InitSchema creates the necessary database tables if they don't exist. The
// unique indexes on reports.report_id and aggregated_locations.grid_key are
// load-bearing: the submission transaction and the grid upsert rely on the
// engine enforcing them.
func InitSchema(db *sql.DB) error {
	log.Info("Initializing roadwatch database schema...")

	tables := []struct {
		name string
		ddl  string
	}{
		{"users", `
		CREATE TABLE IF NOT EXISTS users(
			id INT NOT NULL AUTO_INCREMENT,
			device_id VARCHAR(128) NOT NULL,
			display_name VARCHAR(255),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (id),
			UNIQUE INDEX device_id_index (device_id)
		)`},
		{"contractors", `
		CREATE TABLE IF NOT EXISTS contractors(
			id INT NOT NULL AUTO_INCREMENT,
			name VARCHAR(255) NOT NULL,
			contact_email VARCHAR(255),
			phone VARCHAR(64),
			active BOOL NOT NULL DEFAULT true,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (id),
			INDEX active_index (active)
		)`},
		{"reports", `
		CREATE TABLE IF NOT EXISTS reports(
			id INT NOT NULL AUTO_INCREMENT,
			report_id VARCHAR(64) NOT NULL,
			user_id INT,
			device_id VARCHAR(128) NOT NULL,
			reported_at TIMESTAMP NOT NULL,
			total_potholes INT NOT NULL DEFAULT 0,
			total_anomalies INT NOT NULL DEFAULT 0,
			health_score INT NOT NULL DEFAULT 100,
			status ENUM('pending', 'reviewed', 'assigned', 'in_progress', 'resolved') NOT NULL DEFAULT 'pending',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (id),
			UNIQUE INDEX report_id_index (report_id),
			INDEX device_id_index (device_id),
			INDEX status_index (status)
		)`},
		{"potholes", `
		CREATE TABLE IF NOT EXISTS potholes(
			id INT NOT NULL AUTO_INCREMENT,
			report_ref INT NOT NULL,
			latitude DOUBLE NOT NULL,
			longitude DOUBLE NOT NULL,
			severity ENUM('low', 'medium', 'high') NOT NULL DEFAULT 'medium',
			detected_at TIMESTAMP NOT NULL,
			PRIMARY KEY (id),
			INDEX report_ref_index (report_ref),
			FOREIGN KEY (report_ref) REFERENCES reports(id) ON DELETE CASCADE
		)`},
		{"road_anomalies", `
		CREATE TABLE IF NOT EXISTS road_anomalies(
			id INT NOT NULL AUTO_INCREMENT,
			report_ref INT NOT NULL,
			start_latitude DOUBLE NOT NULL,
			start_longitude DOUBLE NOT NULL,
			end_latitude DOUBLE,
			end_longitude DOUBLE,
			severity ENUM('low', 'medium', 'high') NOT NULL DEFAULT 'medium',
			started_at TIMESTAMP NOT NULL,
			ended_at TIMESTAMP NULL,
			PRIMARY KEY (id),
			INDEX report_ref_index (report_ref),
			FOREIGN KEY (report_ref) REFERENCES reports(id) ON DELETE CASCADE
		)`},
		{"aggregated_locations", `
		CREATE TABLE IF NOT EXISTS aggregated_locations(
			id INT NOT NULL AUTO_INCREMENT,
			grid_key VARCHAR(42) NOT NULL,
			latitude DOUBLE NOT NULL,
			longitude DOUBLE NOT NULL,
			total_potholes INT NOT NULL DEFAULT 0,
			total_anomalies INT NOT NULL DEFAULT 0,
			highest_severity ENUM('low', 'medium', 'high') NOT NULL DEFAULT 'medium',
			report_count INT NOT NULL DEFAULT 0,
			first_reported_at TIMESTAMP NOT NULL,
			last_reported_at TIMESTAMP NOT NULL,
			status ENUM('pending', 'assigned', 'in_progress', 'pending_verification', 'verified', 'fixed') NOT NULL DEFAULT 'pending',
			verified_at TIMESTAMP NULL,
			PRIMARY KEY (id),
			UNIQUE INDEX grid_key_index (grid_key),
			INDEX status_index (status),
			INDEX severity_index (highest_severity),
			INDEX lat_lon_index (latitude, longitude)
		)`},
		{"work_assignments", `
		CREATE TABLE IF NOT EXISTS work_assignments(
			id INT NOT NULL AUTO_INCREMENT,
			location_id INT NOT NULL,
			contractor_id INT NOT NULL,
			assigned_by INT,
			due_date TIMESTAMP NULL,
			status ENUM('assigned', 'in_progress', 'pending_verification', 'completed', 'verified') NOT NULL DEFAULT 'assigned',
			notes TEXT,
			completed_at TIMESTAMP NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			PRIMARY KEY (id),
			INDEX location_id_index (location_id),
			INDEX contractor_id_index (contractor_id),
			INDEX status_index (status),
			FOREIGN KEY (location_id) REFERENCES aggregated_locations(id),
			FOREIGN KEY (contractor_id) REFERENCES contractors(id)
		)`},
	}

	for _, t := range tables {
		if _, err := db.Exec(t.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", t.name, err)
		}
		log.Infof("%s table created/verified", t.name)
	}

	log.Info("Roadwatch database schema initialization completed")
	return nil
}
