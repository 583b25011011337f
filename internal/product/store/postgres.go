package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"covergate/internal/product/models"
	id "covergate/pkg/domain"
	"covergate/pkg/platform/sentinel"
)

// PostgresStore reads products from the catalog table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FindByID(ctx context.Context, productID id.ProductID) (*models.Product, error) {
	const query = `
		SELECT id, name, provider, category, price, description, image_url,
		       insured_object, benefits, annual_insurable_amount, insurance_term,
		       created_at, updated_at
		FROM products WHERE id = $1`

	var p models.Product
	var pid uuid.UUID
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(productID)).Scan(
		&pid, &p.Name, &p.Provider, &p.Category, &p.Price, &p.Description,
		&p.ImageURL, &p.InsuredObject, &p.Benefits, &p.AnnualInsurableAmount,
		&p.InsuranceTerm, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find product: %w", err)
	}
	p.ID = id.ProductID(pid)
	return &p, nil
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]*models.Product, error) {
	const query = `
		SELECT id, name, provider, category, price, description, image_url,
		       insured_object, benefits, annual_insurable_amount, insurance_term,
		       created_at, updated_at
		FROM products ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var out []*models.Product
	for rows.Next() {
		var p models.Product
		var pid uuid.UUID
		if err := rows.Scan(
			&pid, &p.Name, &p.Provider, &p.Category, &p.Price, &p.Description,
			&p.ImageURL, &p.InsuredObject, &p.Benefits, &p.AnnualInsurableAmount,
			&p.InsuranceTerm, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		p.ID = id.ProductID(pid)
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Seed(ctx context.Context, p *models.Product) error {
	const query = `
		INSERT INTO products (id, name, provider, category, price, description,
		    image_url, insured_object, benefits, annual_insurable_amount,
		    insurance_term, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO NOTHING`

	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(p.ID), p.Name, p.Provider, p.Category, p.Price, p.Description,
		p.ImageURL, p.InsuredObject, p.Benefits, p.AnnualInsurableAmount,
		p.InsuranceTerm, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("seed product: %w", err)
	}
	return nil
}
