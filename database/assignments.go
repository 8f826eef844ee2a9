package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"roadwatch-service/apperrors"
	"roadwatch-service/models"

	"github.com/apex/log"
)

// AssignmentsService coordinates the linked hotspot/assignment lifecycle:
// assignment, contractor progress, admin verification and rejection, plus the
// batch variants. Every multi-row operation runs in one transaction.
type AssignmentsService struct {
	db *sql.DB
}

func NewAssignmentsService(db *sql.DB) *AssignmentsService {
	return &AssignmentsService{db: db}
}

// AssignContractor creates or refreshes the open assignment of a hotspot. A
// hotspot has at most one open assignment: when one exists it is updated in
// place with the new contractor, due date and notes instead of inserting a
// duplicate. The hotspot moves to "assigned".
func (s *AssignmentsService) AssignContractor(ctx context.Context, req *models.AssignRequest, adminID *int64) (int64, error) {
	const op = "assign_contractor"

	if req.LocationID == 0 {
		return 0, apperrors.Validationf(op, "locationId is required")
	}
	if req.ContractorID == 0 {
		return 0, apperrors.Validationf(op, "contractorId is required")
	}
	dueDate, err := parseDueDate(op, req.DueDate)
	if err != nil {
		return 0, err
	}
	if err := s.checkContractorActive(ctx, op, req.ContractorID); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, apperrors.Storage(op, "starting transaction", err)
	}
	defer tx.Rollback()

	id, err := assignInTx(tx, op, req.LocationID, req.ContractorID, adminID, dueDate, req.Notes)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, apperrors.Storage(op, "committing transaction", err)
	}

	log.Infof("Assigned contractor %d to location %d (assignment %d)", req.ContractorID, req.LocationID, id)
	return id, nil
}

// BatchAssign assigns one contractor to several hotspots atomically: any
// failure rolls back every assignment in the batch.
func (s *AssignmentsService) BatchAssign(ctx context.Context, req *models.BatchAssignRequest, adminID *int64) (*models.BatchAssignResponse, error) {
	const op = "batch_assign"

	if len(req.LocationIDs) == 0 {
		return nil, apperrors.Validationf(op, "locationIds is required")
	}
	if req.ContractorID == 0 {
		return nil, apperrors.Validationf(op, "contractorId is required")
	}
	dueDate, err := parseDueDate(op, req.DueDate)
	if err != nil {
		return nil, err
	}
	if err := s.checkContractorActive(ctx, op, req.ContractorID); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperrors.Storage(op, "starting transaction", err)
	}
	defer tx.Rollback()

	ids := make([]int64, 0, len(req.LocationIDs))
	for _, locationID := range req.LocationIDs {
		id, err := assignInTx(tx, op, locationID, req.ContractorID, adminID, dueDate, req.Notes)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := tx.Commit(); err != nil {
		return nil, apperrors.Storage(op, "committing transaction", err)
	}

	log.Infof("Batch assigned contractor %d to %d locations", req.ContractorID, len(ids))
	return &models.BatchAssignResponse{AssignmentIDs: ids, Count: len(ids)}, nil
}

// UpdateAssignmentStatus applies a contractor or admin status change to an
// assignment and derives the paired hotspot status: "completed" parks the
// hotspot for verification, "verified" closes it, anything else mirrors the
// assignment status. Closing statuses stamp completed_at.
func (s *AssignmentsService) UpdateAssignmentStatus(ctx context.Context, assignmentID int64, req *models.UpdateAssignmentRequest) error {
	const op = "update_assignment"

	if req.Status == "" && req.Notes == nil {
		return apperrors.Validationf(op, "status or notes is required")
	}
	var status models.AssignmentStatus
	if req.Status != "" {
		status = models.AssignmentStatus(req.Status)
		if !status.Valid() {
			return apperrors.Validationf(op, "invalid assignment status %q", req.Status)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.Storage(op, "starting transaction", err)
	}
	defer tx.Rollback()

	var locationID int64
	err = tx.QueryRow(`SELECT location_id FROM work_assignments WHERE id = ? FOR UPDATE`, assignmentID).
		Scan(&locationID)
	if err == sql.ErrNoRows {
		return apperrors.NotFoundf(op, "assignment %d not found", assignmentID)
	}
	if err != nil {
		return apperrors.Storage(op, "looking up assignment", err)
	}

	if req.Notes != nil {
		if _, err := tx.Exec(`UPDATE work_assignments SET notes = ? WHERE id = ?`,
			*req.Notes, assignmentID); err != nil {
			return apperrors.Storage(op, "updating assignment notes", err)
		}
	}

	if req.Status != "" {
		if status.Closes() {
			_, err = tx.Exec(`UPDATE work_assignments SET status = ?, completed_at = ? WHERE id = ?`,
				string(status), time.Now().UTC(), assignmentID)
		} else {
			_, err = tx.Exec(`UPDATE work_assignments SET status = ? WHERE id = ?`,
				string(status), assignmentID)
		}
		if err != nil {
			return apperrors.Storage(op, "updating assignment status", err)
		}

		locationStatus := models.LocationStatusFor(status)
		if _, err := tx.Exec(`UPDATE aggregated_locations SET status = ? WHERE id = ?`,
			string(locationStatus), locationID); err != nil {
			return apperrors.Storage(op, "updating location status", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.Storage(op, "committing transaction", err)
	}

	log.Infof("Updated assignment %d (location %d): status=%q", assignmentID, locationID, req.Status)
	return nil
}

// VerifyLocation marks a hotspot verified and stamps verified_at. Any
// assignment on the hotspot still in an open working state is moved to
// "verified" as a best-effort side effect: the response reports both outcomes
// so callers can detect a hotspot verified without an assignment.
func (s *AssignmentsService) VerifyLocation(ctx context.Context, locationID int64) (*models.VerifyResponse, error) {
	const op = "verify_location"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperrors.Storage(op, "starting transaction", err)
	}
	defer tx.Rollback()

	assignmentUpdated, err := verifyInTx(tx, op, locationID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, apperrors.Storage(op, "committing transaction", err)
	}

	log.Infof("Verified location %d (assignment updated: %v)", locationID, assignmentUpdated)
	return &models.VerifyResponse{LocationUpdated: true, AssignmentUpdated: assignmentUpdated}, nil
}

// BatchVerify verifies several hotspots atomically: if any single one fails,
// none of the batch's statuses change.
func (s *AssignmentsService) BatchVerify(ctx context.Context, req *models.BatchVerifyRequest) (*models.BatchVerifyResponse, error) {
	const op = "batch_verify"

	if len(req.LocationIDs) == 0 {
		return nil, apperrors.Validationf(op, "locationIds is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperrors.Storage(op, "starting transaction", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	resp := &models.BatchVerifyResponse{}
	for _, locationID := range req.LocationIDs {
		assignmentUpdated, err := verifyInTx(tx, op, locationID, now)
		if err != nil {
			return nil, err
		}
		resp.LocationsUpdated++
		if assignmentUpdated {
			resp.AssignmentsUpdated++
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, apperrors.Storage(op, "committing transaction", err)
	}

	log.Infof("Batch verified %d locations (%d assignments updated)",
		resp.LocationsUpdated, resp.AssignmentsUpdated)
	return resp, nil
}

// RejectVerification sends a hotspot awaiting verification back to the
// contractor: its pending_verification assignment returns to in_progress with
// the rejection reason appended, and the hotspot returns to "assigned". A
// hotspot with no such assignment is left with just the status change.
func (s *AssignmentsService) RejectVerification(ctx context.Context, locationID int64, reason string) error {
	const op = "reject_verification"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.Storage(op, "starting transaction", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRow(`SELECT id FROM aggregated_locations WHERE id = ? FOR UPDATE`, locationID).Scan(&id)
	if err == sql.ErrNoRows {
		return apperrors.NotFoundf(op, "location %d not found", locationID)
	}
	if err != nil {
		return apperrors.Storage(op, "looking up location", err)
	}

	note := "\nVerification rejected"
	if reason != "" {
		note = fmt.Sprintf("\nVerification rejected: %s", reason)
	}
	// Silent no-op when no assignment is awaiting verification.
	if _, err := tx.Exec(`UPDATE work_assignments
		SET status = 'in_progress', notes = CONCAT(COALESCE(notes, ''), ?)
		WHERE location_id = ? AND status = 'pending_verification'`,
		note, locationID); err != nil {
		return apperrors.Storage(op, "updating assignment", err)
	}

	if _, err := tx.Exec(`UPDATE aggregated_locations SET status = 'assigned' WHERE id = ?`,
		locationID); err != nil {
		return apperrors.Storage(op, "updating location status", err)
	}

	if err := tx.Commit(); err != nil {
		return apperrors.Storage(op, "committing transaction", err)
	}

	log.Infof("Rejected verification of location %d", locationID)
	return nil
}

// assignInTx enforces the single-open-assignment invariant inside tx.
func assignInTx(tx *sql.Tx, op string, locationID, contractorID int64, adminID *int64, dueDate *time.Time, notes string) (int64, error) {
	var id int64
	err := tx.QueryRow(`SELECT id FROM aggregated_locations WHERE id = ? FOR UPDATE`, locationID).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, apperrors.NotFoundf(op, "location %d not found", locationID)
	}
	if err != nil {
		return 0, apperrors.Storage(op, "looking up location", err)
	}

	var assignmentID int64
	err = tx.QueryRow(`SELECT id FROM work_assignments
		WHERE location_id = ? AND status NOT IN ('completed', 'verified')
		ORDER BY id LIMIT 1
		FOR UPDATE`, locationID).Scan(&assignmentID)
	switch {
	case err == sql.ErrNoRows:
		result, err := tx.Exec(`INSERT
			INTO work_assignments (location_id, contractor_id, assigned_by, due_date, status, notes)
			VALUES (?, ?, ?, ?, 'assigned', ?)`,
			locationID, contractorID, adminID, dueDate, notes)
		if err != nil {
			return 0, apperrors.Storage(op, "inserting assignment", err)
		}
		assignmentID, err = result.LastInsertId()
		if err != nil {
			return 0, apperrors.Storage(op, "reading assignment id", err)
		}
	case err != nil:
		return 0, apperrors.Storage(op, "looking up open assignment", err)
	default:
		// Reuse the open assignment row instead of creating a duplicate.
		if _, err := tx.Exec(`UPDATE work_assignments
			SET contractor_id = ?, assigned_by = ?, due_date = ?, notes = ?, status = 'assigned', completed_at = NULL
			WHERE id = ?`,
			contractorID, adminID, dueDate, notes, assignmentID); err != nil {
			return 0, apperrors.Storage(op, "updating open assignment", err)
		}
	}

	if _, err := tx.Exec(`UPDATE aggregated_locations SET status = 'assigned' WHERE id = ?`,
		locationID); err != nil {
		return 0, apperrors.Storage(op, "updating location status", err)
	}

	return assignmentID, nil
}

// verifyInTx verifies one hotspot inside tx and reports whether an assignment
// was updated alongside it.
func verifyInTx(tx *sql.Tx, op string, locationID int64, now time.Time) (bool, error) {
	var id int64
	err := tx.QueryRow(`SELECT id FROM aggregated_locations WHERE id = ? FOR UPDATE`, locationID).Scan(&id)
	if err == sql.ErrNoRows {
		return false, apperrors.NotFoundf(op, "location %d not found", locationID)
	}
	if err != nil {
		return false, apperrors.Storage(op, "looking up location", err)
	}

	if _, err := tx.Exec(`UPDATE aggregated_locations SET status = 'verified', verified_at = ? WHERE id = ?`,
		now, locationID); err != nil {
		return false, apperrors.Storage(op, "updating location status", err)
	}

	// Best-effort: a hotspot verified straight from the dashboard may have no
	// assignment at all. Zero rows affected is not an error.
	result, err := tx.Exec(`UPDATE work_assignments
		SET status = 'verified', completed_at = ?, notes = CONCAT(COALESCE(notes, ''), ?)
		WHERE location_id = ? AND status IN ('assigned', 'in_progress', 'pending_verification')`,
		now, "\nVerified by admin", locationID)
	if err != nil {
		return false, apperrors.Storage(op, "updating assignment", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Storage(op, "reading rows affected", err)
	}
	return rows > 0, nil
}

func (s *AssignmentsService) checkContractorActive(ctx context.Context, op string, contractorID int64) error {
	var active bool
	err := s.db.QueryRowContext(ctx,
		`SELECT active FROM contractors WHERE id = ?`, contractorID).Scan(&active)
	if err == sql.ErrNoRows {
		return apperrors.NotFoundf(op, "contractor %d not found", contractorID)
	}
	if err != nil {
		return apperrors.Storage(op, "looking up contractor", err)
	}
	if !active {
		return apperrors.Validationf(op, "contractor %d is not active", contractorID)
	}
	return nil
}

func parseDueDate(op, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, apperrors.Validationf(op, "due_date is not a valid RFC3339 timestamp: %v", err)
	}
	tu := t.UTC()
	return &tu, nil
}
