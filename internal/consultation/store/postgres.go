package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"covergate/internal/consultation/models"
	id "covergate/pkg/domain"
	"covergate/pkg/platform/sentinel"
)

// PostgresStore persists consultation requests in the consultations table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const selectConsultations = `
	SELECT id, customer_name, customer_phone, customer_email, product_id,
	       note, status, created_at, updated_at
	FROM consultations`

func (s *PostgresStore) Create(ctx context.Context, request *models.ConsultationRequest) error {
	const query = `
		INSERT INTO consultations (id, customer_name, customer_phone,
		    customer_email, product_id, note, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(request.ID), request.CustomerName, request.CustomerPhone,
		request.CustomerEmail, productIDParam(request.ProductID), request.Note,
		string(request.Status), request.CreatedAt, request.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create consultation: %w", err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, request *models.ConsultationRequest) error {
	const query = `
		UPDATE consultations
		SET customer_name = $2, customer_phone = $3, customer_email = $4,
		    product_id = $5, note = $6, status = $7, updated_at = $8
		WHERE id = $1`

	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(request.ID), request.CustomerName, request.CustomerPhone,
		request.CustomerEmail, productIDParam(request.ProductID), request.Note,
		string(request.Status), request.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save consultation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save consultation: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, requestID id.ConsultationID) (*models.ConsultationRequest, error) {
	row := s.db.QueryRowContext(ctx, selectConsultations+` WHERE id = $1`, uuid.UUID(requestID))
	request, err := scanConsultation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find consultation: %w", err)
	}
	return request, nil
}

func (s *PostgresStore) Delete(ctx context.Context, requestID id.ConsultationID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM consultations WHERE id = $1`, uuid.UUID(requestID))
	if err != nil {
		return fmt.Errorf("delete consultation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete consultation: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]*models.ConsultationRequest, error) {
	rows, err := s.db.QueryContext(ctx, selectConsultations+` ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list consultations: %w", err)
	}
	defer rows.Close()

	var out []*models.ConsultationRequest
	for rows.Next() {
		request, err := scanConsultation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan consultation: %w", err)
		}
		out = append(out, request)
	}
	return out, rows.Err()
}

// productIDParam maps the optional product reference to NULL when absent.
func productIDParam(productID id.ProductID) any {
	if productID.IsNil() {
		return nil
	}
	return uuid.UUID(productID)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConsultation(row rowScanner) (*models.ConsultationRequest, error) {
	var (
		request   models.ConsultationRequest
		requestID uuid.UUID
		productID uuid.NullUUID
		status    string
	)
	err := row.Scan(&requestID, &request.CustomerName, &request.CustomerPhone,
		&request.CustomerEmail, &productID, &request.Note, &status,
		&request.CreatedAt, &request.UpdatedAt)
	if err != nil {
		return nil, err
	}
	request.ID = id.ConsultationID(requestID)
	if productID.Valid {
		request.ProductID = id.ProductID(productID.UUID)
	}
	request.Status = models.Status(status)
	return &request, nil
}
