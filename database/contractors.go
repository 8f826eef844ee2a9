package database

import (
	"context"
	"database/sql"

	"roadwatch-service/apperrors"
	"roadwatch-service/models"

	"github.com/apex/log"
)

type ContractorsService struct {
	db *sql.DB
}

func NewContractorsService(db *sql.DB) *ContractorsService {
	return &ContractorsService{db: db}
}

func (s *ContractorsService) CreateContractor(ctx context.Context, req *models.CreateContractorRequest) (int64, error) {
	const op = "create_contractor"

	if req.Name == "" {
		return 0, apperrors.Validationf(op, "name is required")
	}

	result, err := s.db.ExecContext(ctx, `INSERT
		INTO contractors (name, contact_email, phone, active)
		VALUES (?, ?, ?, true)`,
		req.Name, req.ContactEmail, req.Phone)
	if err != nil {
		return 0, apperrors.Storage(op, "inserting contractor", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, apperrors.Storage(op, "reading contractor id", err)
	}

	log.Infof("Created contractor %d (%s)", id, req.Name)
	return id, nil
}

func (s *ContractorsService) GetContractors(ctx context.Context, activeOnly bool) ([]models.Contractor, error) {
	const op = "get_contractors"

	sqlStr := `SELECT id, name, contact_email, phone, active, created_at FROM contractors`
	if activeOnly {
		sqlStr += ` WHERE active = true`
	}
	sqlStr += ` ORDER BY name`

	rows, err := s.db.QueryContext(ctx, sqlStr)
	if err != nil {
		return nil, apperrors.Storage(op, "querying contractors", err)
	}
	defer rows.Close()

	res := []models.Contractor{}
	for rows.Next() {
		var (
			c            models.Contractor
			email, phone sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.Name, &email, &phone, &c.Active, &c.CreatedAt); err != nil {
			return nil, apperrors.Storage(op, "scanning contractor row", err)
		}
		c.ContactEmail = email.String
		c.Phone = phone.String
		res = append(res, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Storage(op, "iterating contractor rows", err)
	}
	return res, nil
}
