//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"covergate/internal/contract/models"
	"covergate/internal/contract/store"
	"covergate/internal/platform/postgres"
	id "covergate/pkg/domain"
	"covergate/pkg/platform/sentinel"
)

type PostgresStoreSuite struct {
	suite.Suite
	container *tcpostgres.PostgresContainer
	store     *store.PostgresStore
	cleanup   func()
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("covergate_test"),
		tcpostgres.WithUsername("covergate"),
		tcpostgres.WithPassword("covergate"),
		tcpostgres.BasicWaitStrategies(),
	)
	s.Require().NoError(err)
	s.container = container

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	s.Require().NoError(err)

	db, err := postgres.Open(ctx, dsn)
	s.Require().NoError(err)
	s.store = store.NewPostgres(db)
	s.cleanup = func() {
		db.Close()
		_ = container.Terminate(context.Background())
	}
}

func (s *PostgresStoreSuite) TearDownSuite() {
	if s.cleanup != nil {
		s.cleanup()
	}
}

func newContract() *models.Contract {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.Contract{
		ID:             id.ContractID(uuid.New()),
		UserID:         id.UserID(uuid.New()),
		ProductID:      id.ProductID(uuid.New()),
		ApplicationID:  id.ApplicationID(uuid.New()),
		ContractNumber: models.NewContractNumber(),
		StartDate:      now,
		EndDate:        now.Add(365 * 24 * time.Hour),
		Premium:        500000,
		Status:         models.StatusPendingPayment,
		PaymentDetails: models.PaymentDetails{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	contract := newContract()
	contract.Claims = []models.Claim{{
		ID:          id.ClaimID(uuid.New()),
		RequestDate: contract.CreatedAt,
		Reason:      "water damage",
		Amount:      2000000,
		Attachments: []string{"/uploads/invoice.pdf"},
		Status:      models.DecisionPending,
	}}
	contract.Cancellation = &models.Cancellation{
		Requested:   true,
		Reason:      "moving abroad",
		RequestedAt: contract.CreatedAt,
		Status:      models.DecisionPending,
	}

	s.Require().NoError(s.store.Create(ctx, contract))

	loaded, err := s.store.FindByID(ctx, contract.ID)
	s.Require().NoError(err)
	s.Equal(contract.ContractNumber, loaded.ContractNumber)
	s.Equal(contract.Status, loaded.Status)
	s.Require().Len(loaded.Claims, 1)
	s.Equal("water damage", loaded.Claims[0].Reason)
	s.Equal(contract.Claims[0].ID, loaded.Claims[0].ID)
	s.Require().NotNil(loaded.Cancellation)
	s.True(loaded.Cancellation.Requested)
}

func (s *PostgresStoreSuite) TestApplicationUniqueBackstop() {
	ctx := context.Background()
	first := newContract()
	s.Require().NoError(s.store.Create(ctx, first))

	second := newContract()
	second.ApplicationID = first.ApplicationID
	err := s.store.Create(ctx, second)
	s.Require().ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestSaveUpdatesInPlace() {
	ctx := context.Background()
	contract := newContract()
	s.Require().NoError(s.store.Create(ctx, contract))

	contract.Status = models.StatusActive
	contract.PaymentDetails = models.PaymentDetails{"method": "manual", "amount": float64(500000)}
	contract.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)
	s.Require().NoError(s.store.Save(ctx, contract))

	loaded, err := s.store.FindByID(ctx, contract.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusActive, loaded.Status)
	s.Equal("manual", loaded.PaymentDetails["method"])
}

func (s *PostgresStoreSuite) TestSaveMissingIsNotFound() {
	err := s.store.Save(context.Background(), newContract())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}
