package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"covergate/internal/contract/models"
	id "covergate/pkg/domain"
	"covergate/pkg/platform/sentinel"
)

// PostgresStore persists contracts. Payment details, the cancellation
// sub-record and the claims list live in JSONB columns; the unique index on
// application_id is the storage backstop for one contract per application.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, contract *models.Contract) error {
	paymentDetails, cancellation, claims, err := marshalSubRecords(contract)
	if err != nil {
		return err
	}

	const query = `
		INSERT INTO contracts (id, user_id, product_id, application_id,
		    contract_number, start_date, end_date, premium, status,
		    payment_details, cancellation, claims, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err = s.db.ExecContext(ctx, query,
		uuid.UUID(contract.ID), uuid.UUID(contract.UserID), uuid.UUID(contract.ProductID),
		uuid.UUID(contract.ApplicationID), contract.ContractNumber,
		contract.StartDate, contract.EndDate, contract.Premium, string(contract.Status),
		paymentDetails, cancellation, claims, contract.CreatedAt, contract.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("create contract: %w", err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, contract *models.Contract) error {
	paymentDetails, cancellation, claims, err := marshalSubRecords(contract)
	if err != nil {
		return err
	}

	const query = `
		UPDATE contracts SET
		    contract_number = $2, start_date = $3, end_date = $4, premium = $5,
		    status = $6, payment_details = $7, cancellation = $8, claims = $9,
		    updated_at = $10
		WHERE id = $1`

	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(contract.ID), contract.ContractNumber, contract.StartDate,
		contract.EndDate, contract.Premium, string(contract.Status),
		paymentDetails, cancellation, claims, contract.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save contract: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save contract: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, contractID id.ContractID) (*models.Contract, error) {
	const query = selectContracts + ` WHERE id = $1`
	return s.findOne(ctx, query, uuid.UUID(contractID))
}

func (s *PostgresStore) FindByApplication(ctx context.Context, applicationID id.ApplicationID) (*models.Contract, error) {
	const query = selectContracts + ` WHERE application_id = $1`
	return s.findOne(ctx, query, uuid.UUID(applicationID))
}

func (s *PostgresStore) FindByNumber(ctx context.Context, contractNumber string) (*models.Contract, error) {
	const query = selectContracts + ` WHERE contract_number = $1`
	return s.findOne(ctx, query, contractNumber)
}

func (s *PostgresStore) Delete(ctx context.Context, contractID id.ContractID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM contracts WHERE id = $1`, uuid.UUID(contractID))
	if err != nil {
		return fmt.Errorf("delete contract: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete contract: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]*models.Contract, error) {
	const query = selectContracts + ` ORDER BY created_at DESC`
	return s.list(ctx, query)
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]*models.Contract, error) {
	const query = selectContracts + ` WHERE user_id = $1 ORDER BY created_at DESC`
	return s.list(ctx, query, uuid.UUID(userID))
}

const selectContracts = `
	SELECT id, user_id, product_id, application_id, contract_number,
	       start_date, end_date, premium, status, payment_details,
	       cancellation, claims, created_at, updated_at
	FROM contracts`

func (s *PostgresStore) findOne(ctx context.Context, query string, arg any) (*models.Contract, error) {
	contract, err := scanContract(s.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find contract: %w", err)
	}
	return contract, nil
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]*models.Contract, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list contracts: %w", err)
	}
	defer rows.Close()

	var out []*models.Contract
	for rows.Next() {
		contract, err := scanContract(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contract: %w", err)
		}
		out = append(out, contract)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContract(row rowScanner) (*models.Contract, error) {
	var contract models.Contract
	var contractID, userID, productID, applicationID uuid.UUID
	var status string
	var paymentDetails, cancellation, claims []byte

	err := row.Scan(&contractID, &userID, &productID, &applicationID,
		&contract.ContractNumber, &contract.StartDate, &contract.EndDate,
		&contract.Premium, &status, &paymentDetails, &cancellation, &claims,
		&contract.CreatedAt, &contract.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(paymentDetails, &contract.PaymentDetails); err != nil {
		return nil, fmt.Errorf("unmarshal payment details: %w", err)
	}
	if len(cancellation) > 0 && string(cancellation) != "null" {
		contract.Cancellation = &models.Cancellation{}
		if err := json.Unmarshal(cancellation, contract.Cancellation); err != nil {
			return nil, fmt.Errorf("unmarshal cancellation: %w", err)
		}
	}
	if err := json.Unmarshal(claims, &contract.Claims); err != nil {
		return nil, fmt.Errorf("unmarshal claims: %w", err)
	}
	contract.ID = id.ContractID(contractID)
	contract.UserID = id.UserID(userID)
	contract.ProductID = id.ProductID(productID)
	contract.ApplicationID = id.ApplicationID(applicationID)
	contract.Status = models.Status(status)
	return &contract, nil
}

func marshalSubRecords(contract *models.Contract) (paymentDetails, cancellation, claims []byte, err error) {
	if contract.PaymentDetails == nil {
		contract.PaymentDetails = models.PaymentDetails{}
	}
	paymentDetails, err = json.Marshal(contract.PaymentDetails)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal payment details: %w", err)
	}
	cancellation, err = json.Marshal(contract.Cancellation)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal cancellation: %w", err)
	}
	if contract.Claims == nil {
		claims = []byte("[]")
	} else if claims, err = json.Marshal(contract.Claims); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal claims: %w", err)
	}
	return paymentDetails, cancellation, claims, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
