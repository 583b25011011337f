// Package service aggregates the counts and revenue shown on the admin
// dashboard.
package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	appmodels "covergate/internal/application/models"
	consultationmodels "covergate/internal/consultation/models"
	contractmodels "covergate/internal/contract/models"
	productmodels "covergate/internal/product/models"
	dErrors "covergate/pkg/domain-errors"
)

// The read boundaries: the dashboard only ever counts and sums, so it
// consumes the listing side of each vertical.
type (
	Products interface {
		ListAll(ctx context.Context) ([]*productmodels.Product, error)
	}
	Applications interface {
		ListAll(ctx context.Context) ([]*appmodels.Application, error)
	}
	Contracts interface {
		ListAll(ctx context.Context) ([]*contractmodels.Contract, error)
	}
	Consultations interface {
		ListAll(ctx context.Context) ([]*consultationmodels.ConsultationRequest, error)
	}
)

// Dashboard is the admin overview: entity counts plus the revenue collected
// from contracts that reached Active.
type Dashboard struct {
	TotalProducts      int   `json:"total_products"`
	TotalApplications  int   `json:"total_applications"`
	TotalContracts     int   `json:"total_contracts"`
	TotalConsultations int   `json:"total_consultations"`
	TotalRevenue       int64 `json:"total_revenue"`
}

type Service struct {
	products      Products
	applications  Applications
	contracts     Contracts
	consultations Consultations
}

func New(products Products, applications Applications, contracts Contracts, consultations Consultations) *Service {
	return &Service{
		products:      products,
		applications:  applications,
		contracts:     contracts,
		consultations: consultations,
	}
}

// Dashboard gathers the four verticals concurrently. Revenue sums the
// premiums of contracts currently in force.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	var out Dashboard
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		products, err := s.products.ListAll(gctx)
		if err != nil {
			return err
		}
		out.TotalProducts = len(products)
		return nil
	})
	g.Go(func() error {
		applications, err := s.applications.ListAll(gctx)
		if err != nil {
			return err
		}
		out.TotalApplications = len(applications)
		return nil
	})
	g.Go(func() error {
		contracts, err := s.contracts.ListAll(gctx)
		if err != nil {
			return err
		}
		out.TotalContracts = len(contracts)
		for _, contract := range contracts {
			if contract.Status == contractmodels.StatusActive {
				out.TotalRevenue += contract.Premium
			}
		}
		return nil
	})
	g.Go(func() error {
		consultations, err := s.consultations.ListAll(gctx)
		if err != nil {
			return err
		}
		out.TotalConsultations = len(consultations)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to gather dashboard stats")
	}
	return &out, nil
}
