package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"covergate/internal/contract/models"
	id "covergate/pkg/domain"
	"covergate/pkg/platform/sentinel"
)

type ContractStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
}

func TestContractStoreSuite(t *testing.T) {
	suite.Run(t, new(ContractStoreSuite))
}

func (s *ContractStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func (s *ContractStoreSuite) newContract() *models.Contract {
	now := time.Now()
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

func (s *ContractStoreSuite) TestCreateAndLookups() {
	s.Run("creates and finds by id, application and number", func() {
		contract := s.newContract()
		s.Require().NoError(s.store.Create(s.ctx, contract))

		byID, err := s.store.FindByID(s.ctx, contract.ID)
		s.Require().NoError(err)
		s.Equal(contract.ContractNumber, byID.ContractNumber)

		byApp, err := s.store.FindByApplication(s.ctx, contract.ApplicationID)
		s.Require().NoError(err)
		s.Equal(contract.ID, byApp.ID)

		byNumber, err := s.store.FindByNumber(s.ctx, contract.ContractNumber)
		s.Require().NoError(err)
		s.Equal(contract.ID, byNumber.ID)
	})

	s.Run("unknown lookups return ErrNotFound", func() {
		_, err := s.store.FindByID(s.ctx, id.ContractID(uuid.New()))
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
		_, err = s.store.FindByNumber(s.ctx, "HD-missing")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *ContractStoreSuite) TestApplicationUniqueness() {
	first := s.newContract()
	s.Require().NoError(s.store.Create(s.ctx, first))

	second := s.newContract()
	second.ApplicationID = first.ApplicationID
	err := s.store.Create(s.ctx, second)
	s.Require().ErrorIs(err, sentinel.ErrConflict)
}

func (s *ContractStoreSuite) TestCloneIsolation() {
	contract := s.newContract()
	contract.Claims = []models.Claim{{
		ID:          id.ClaimID(uuid.New()),
		RequestDate: time.Now(),
		Reason:      "original",
		Status:      models.DecisionPending,
	}}
	s.Require().NoError(s.store.Create(s.ctx, contract))

	loaded, err := s.store.FindByID(s.ctx, contract.ID)
	s.Require().NoError(err)
	loaded.Claims[0].Reason = "mutated"
	loaded.PaymentDetails["injected"] = true

	fresh, err := s.store.FindByID(s.ctx, contract.ID)
	s.Require().NoError(err)
	s.Equal("original", fresh.Claims[0].Reason)
	s.NotContains(fresh.PaymentDetails, "injected")
}

func (s *ContractStoreSuite) TestListByUserNewestFirst() {
	userID := id.UserID(uuid.New())
	base := time.Now()
	for i := 0; i < 3; i++ {
		contract := s.newContract()
		contract.UserID = userID
		contract.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		s.Require().NoError(s.store.Create(s.ctx, contract))
	}
	s.Require().NoError(s.store.Create(s.ctx, s.newContract()))

	mine, err := s.store.ListByUser(s.ctx, userID)
	s.Require().NoError(err)
	s.Require().Len(mine, 3)
	s.True(mine[0].CreatedAt.After(mine[1].CreatedAt))
	s.True(mine[1].CreatedAt.After(mine[2].CreatedAt))
}
