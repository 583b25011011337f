package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	appmodels "covergate/internal/application/models"
	applicationstore "covergate/internal/application/store"
	consultationmodels "covergate/internal/consultation/models"
	consultationstore "covergate/internal/consultation/store"
	contractmodels "covergate/internal/contract/models"
	contractstore "covergate/internal/contract/store"
	productmodels "covergate/internal/product/models"
	productstore "covergate/internal/product/store"
	id "covergate/pkg/domain"
)

func TestDashboard(t *testing.T) {
	ctx := context.Background()
	products := productstore.NewInMemory()
	applications := applicationstore.NewInMemory()
	contracts := contractstore.NewInMemory()
	consultations := consultationstore.NewInMemory()
	service := New(products, applications, contracts, consultations)

	t.Run("empty stores count zero", func(t *testing.T) {
		dashboard, err := service.Dashboard(ctx)
		require.NoError(t, err)
		require.Zero(t, dashboard.TotalProducts)
		require.Zero(t, dashboard.TotalRevenue)
	})

	productID := id.ProductID(uuid.New())
	require.NoError(t, products.Seed(ctx, &productmodels.Product{ID: productID, Name: "Family Health Shield", Price: 500000}))
	require.NoError(t, applications.Save(ctx, &appmodels.Application{
		ID: id.ApplicationID(uuid.New()), ApplicantID: id.UserID(uuid.New()),
		ProductID: productID, Status: appmodels.StatusApproved,
	}))
	require.NoError(t, consultations.Create(ctx, &consultationmodels.ConsultationRequest{
		ID: id.ConsultationID(uuid.New()), CustomerName: "Tran Thi B",
		CustomerPhone: "0901234567", Status: consultationmodels.StatusNew,
	}))

	// One active and one unpaid contract: only the active premium counts.
	now := time.Now()
	for i, status := range []contractmodels.Status{contractmodels.StatusActive, contractmodels.StatusPendingPayment} {
		require.NoError(t, contracts.Create(ctx, &contractmodels.Contract{
			ID: id.ContractID(uuid.New()), UserID: id.UserID(uuid.New()),
			ProductID: productID, ApplicationID: id.ApplicationID(uuid.New()),
			ContractNumber: contractmodels.NewContractNumber(),
			Premium:        500000, Status: status,
			StartDate: now, EndDate: now.AddDate(1, 0, 0),
			CreatedAt: now.Add(time.Duration(i) * time.Second),
		}))
	}

	dashboard, err := service.Dashboard(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, dashboard.TotalProducts)
	require.Equal(t, 1, dashboard.TotalApplications)
	require.Equal(t, 2, dashboard.TotalContracts)
	require.Equal(t, 1, dashboard.TotalConsultations)
	require.Equal(t, int64(500000), dashboard.TotalRevenue)
}
