package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/climatescope/climatescope/internal/services"
	"github.com/golang/mock/gomock"
)

func TestReconcilerService_ReconcileUserReports(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	t.Run("repairs both directions", func(t *testing.T) {
		repo := services.NewMockReportListRepairer(ctrl)
		repo.EXPECT().InsertMissingUserReports(gomock.Any()).Return(int64(2), nil)
		repo.EXPECT().DeleteOrphanUserReports(gomock.Any()).Return(int64(1), nil)

		svc := services.NewReconcilerService(repo)
		assert.NoError(t, svc.ReconcileUserReports(context.Background()))
	})

	t.Run("insert failure stops the run", func(t *testing.T) {
		repo := services.NewMockReportListRepairer(ctrl)
		repo.EXPECT().InsertMissingUserReports(gomock.Any()).Return(int64(0), errors.New("db error"))

		svc := services.NewReconcilerService(repo)
		assert.Error(t, svc.ReconcileUserReports(context.Background()))
	})

	t.Run("delete failure is reported", func(t *testing.T) {
		repo := services.NewMockReportListRepairer(ctrl)
		repo.EXPECT().InsertMissingUserReports(gomock.Any()).Return(int64(0), nil)
		repo.EXPECT().DeleteOrphanUserReports(gomock.Any()).Return(int64(0), errors.New("db error"))

		svc := services.NewReconcilerService(repo)
		assert.Error(t, svc.ReconcileUserReports(context.Background()))
	})
}
