package services

import (
	"context"

	"github.com/climatescope/climatescope/internal/logger"
)

// ReportListRepairer exposes the repair queries over the user_reports table.
type ReportListRepairer interface {
	InsertMissingUserReports(ctx context.Context) (int64, error)
	DeleteOrphanUserReports(ctx context.Context) (int64, error)
}

// ReconcilerService recomputes user report lists from the reports table.
// The generate flow writes both rows in one transaction, so this job only
// repairs drift introduced outside that flow.
type ReconcilerService struct {
	repo ReportListRepairer
}

// NewReconcilerService creates a new ReconcilerService.
func NewReconcilerService(repo ReportListRepairer) *ReconcilerService {
	return &ReconcilerService{repo: repo}
}

// ReconcileUserReports inserts missing back-references and removes orphans.
func (s *ReconcilerService) ReconcileUserReports(ctx context.Context) error {
	inserted, err := s.repo.InsertMissingUserReports(ctx)
	if err != nil {
		logger.Log.Errorw("reconciliation insert failed", "error", err)
		return err
	}

	deleted, err := s.repo.DeleteOrphanUserReports(ctx)
	if err != nil {
		logger.Log.Errorw("reconciliation delete failed", "error", err)
		return err
	}

	if inserted > 0 || deleted > 0 {
		logger.Log.Infow("user report lists reconciled", "inserted", inserted, "deleted", deleted)
	}
	return nil
}
