// Package models holds the insurance product read model. Catalog management
// lives in an external service; the lifecycle engine only reads product
// names and prices.
package models

import (
	"time"

	id "covergate/pkg/domain"
)

// Product is an insurance product as the catalog presents it.
type Product struct {
	ID                    id.ProductID `json:"id"`
	Name                  string       `json:"name"`
	Provider              string       `json:"provider"`
	Category              string       `json:"category"`
	Price                 int64        `json:"price"`
	Description           string       `json:"description"`
	ImageURL              string       `json:"image_url"`
	InsuredObject         string       `json:"insured_object"`
	Benefits              string       `json:"benefits"`
	AnnualInsurableAmount int64        `json:"annual_insurable_amount"`
	InsuranceTerm         string       `json:"insurance_term"`
	CreatedAt             time.Time    `json:"created_at"`
	UpdatedAt             time.Time    `json:"updated_at"`
}
