package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"covergate/internal/application/models"
	id "covergate/pkg/domain"
	"covergate/pkg/platform/sentinel"
)

// PostgresStore persists applications; form data and documents live in
// JSONB columns mirroring the free-form shape of submissions.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, app *models.Application) error {
	formData, err := json.Marshal(app.FormData)
	if err != nil {
		return fmt.Errorf("marshal form data: %w", err)
	}
	documents, err := json.Marshal(app.Documents)
	if err != nil {
		return fmt.Errorf("marshal documents: %w", err)
	}

	const query = `
		INSERT INTO applications (id, applicant_id, product_id, form_data,
		    documents, status, hidden, admin_note, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
		    status = EXCLUDED.status,
		    hidden = EXCLUDED.hidden,
		    admin_note = EXCLUDED.admin_note,
		    updated_at = EXCLUDED.updated_at`

	_, err = s.db.ExecContext(ctx, query,
		uuid.UUID(app.ID), uuid.UUID(app.ApplicantID), uuid.UUID(app.ProductID),
		formData, documents, string(app.Status), app.Hidden, app.AdminNote,
		app.CreatedAt, app.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save application: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, applicationID id.ApplicationID) (*models.Application, error) {
	const query = selectApplications + ` WHERE id = $1`
	app, err := scanApplication(s.db.QueryRowContext(ctx, query, uuid.UUID(applicationID)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find application: %w", err)
	}
	return app, nil
}

func (s *PostgresStore) Delete(ctx context.Context, applicationID id.ApplicationID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM applications WHERE id = $1`, uuid.UUID(applicationID))
	if err != nil {
		return fmt.Errorf("delete application: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete application: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]*models.Application, error) {
	const query = selectApplications + ` ORDER BY created_at DESC`
	return s.list(ctx, query)
}

func (s *PostgresStore) ListByApplicant(ctx context.Context, applicantID id.UserID) ([]*models.Application, error) {
	const query = selectApplications + ` WHERE applicant_id = $1 AND NOT hidden ORDER BY created_at DESC`
	return s.list(ctx, query, uuid.UUID(applicantID))
}

const selectApplications = `
	SELECT id, applicant_id, product_id, form_data, documents, status,
	       hidden, admin_note, created_at, updated_at
	FROM applications`

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]*models.Application, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	var out []*models.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		out = append(out, app)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplication(row rowScanner) (*models.Application, error) {
	var app models.Application
	var appID, applicantID, productID uuid.UUID
	var status string
	var formData, documents []byte

	err := row.Scan(&appID, &applicantID, &productID, &formData, &documents,
		&status, &app.Hidden, &app.AdminNote, &app.CreatedAt, &app.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(formData, &app.FormData); err != nil {
		return nil, fmt.Errorf("unmarshal form data: %w", err)
	}
	if err := json.Unmarshal(documents, &app.Documents); err != nil {
		return nil, fmt.Errorf("unmarshal documents: %w", err)
	}
	app.ID = id.ApplicationID(appID)
	app.ApplicantID = id.UserID(applicantID)
	app.ProductID = id.ProductID(productID)
	app.Status = models.Status(status)
	return &app, nil
}
