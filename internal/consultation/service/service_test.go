package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"covergate/internal/consultation/models"
	"covergate/internal/consultation/store"
	id "covergate/pkg/domain"
	dErrors "covergate/pkg/domain-errors"
	"covergate/pkg/requestcontext"
)

type ConsultationServiceSuite struct {
	suite.Suite
	ctx     context.Context
	service *Service
}

func TestConsultationServiceSuite(t *testing.T) {
	suite.Run(t, new(ConsultationServiceSuite))
}

func (s *ConsultationServiceSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	s.service = New(store.NewInMemory())
}

func (s *ConsultationServiceSuite) TestCreate() {
	s.Run("records a new request", func() {
		request, err := s.service.Create(s.ctx, CreateInput{
			CustomerName:  "  Tran Thi B  ",
			CustomerPhone: "0901234567",
			CustomerEmail: "b@example.com",
			Note:          "Muốn tư vấn gói gia đình",
		})
		s.Require().NoError(err)
		s.Equal("Tran Thi B", request.CustomerName)
		s.Equal(models.StatusNew, request.Status)
		s.True(request.ProductID.IsNil())
		s.Equal(requestcontext.Now(s.ctx), request.CreatedAt)
	})

	s.Run("name and phone are required", func() {
		_, err := s.service.Create(s.ctx, CreateInput{CustomerName: "Tran Thi B"})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

		_, err = s.service.Create(s.ctx, CreateInput{CustomerPhone: "0901234567"})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

		_, err = s.service.Create(s.ctx, CreateInput{CustomerName: "   ", CustomerPhone: "0901234567"})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *ConsultationServiceSuite) TestListAllNewestFirst() {
	for i, name := range []string{"first", "second", "third"} {
		ctx := requestcontext.WithTime(context.Background(),
			time.Date(2026, 3, 1, 10, i, 0, 0, time.UTC))
		_, err := s.service.Create(ctx, CreateInput{CustomerName: name, CustomerPhone: "0901234567"})
		s.Require().NoError(err)
	}

	requests, err := s.service.ListAll(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(requests, 3)
	s.Equal("third", requests[0].CustomerName)
	s.Equal("first", requests[2].CustomerName)
}

func (s *ConsultationServiceSuite) TestSetStatus() {
	request, err := s.service.Create(s.ctx, CreateInput{CustomerName: "Tran Thi B", CustomerPhone: "0901234567"})
	s.Require().NoError(err)

	updated, err := s.service.SetStatus(s.ctx, request.ID, models.StatusContacted)
	s.Require().NoError(err)
	s.Equal(models.StatusContacted, updated.Status)

	reloaded, err := s.service.ListAll(s.ctx)
	s.Require().NoError(err)
	s.Equal(models.StatusContacted, reloaded[0].Status)

	s.Run("unknown request", func() {
		_, err := s.service.SetStatus(s.ctx, id.ConsultationID(uuid.New()), models.StatusCompleted)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ConsultationServiceSuite) TestDelete() {
	request, err := s.service.Create(s.ctx, CreateInput{CustomerName: "Tran Thi B", CustomerPhone: "0901234567"})
	s.Require().NoError(err)

	s.Require().NoError(s.service.Delete(s.ctx, request.ID))

	requests, err := s.service.ListAll(s.ctx)
	s.Require().NoError(err)
	s.Empty(requests)

	s.Run("deleting twice", func() {
		err := s.service.Delete(s.ctx, request.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ConsultationServiceSuite) TestParseStatus() {
	for _, known := range models.Statuses {
		parsed, err := models.ParseStatus(string(known))
		s.Require().NoError(err)
		s.Equal(known, parsed)
	}
	_, err := models.ParseStatus("Mới")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}
