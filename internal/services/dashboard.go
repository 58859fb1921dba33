package services

import (
	"context"
	"math"

	"github.com/campus-events/apiserver/types"
)

// DashboardRepository computes aggregate figures from storage.
type DashboardRepository interface {
	Stats(ctx context.Context) (types.DashboardStats, error)
}

// DashboardService serves the admin summary. It is recomputed per call.
type DashboardService struct {
	repo DashboardRepository
}

func NewDashboardService(repo DashboardRepository) *DashboardService {
	return &DashboardService{repo: repo}
}

func (s *DashboardService) Stats(ctx context.Context) (types.DashboardStats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return types.DashboardStats{}, err
	}
	stats.TotalRevenue = math.Round(stats.TotalRevenue*100) / 100
	if stats.CategoryStats == nil {
		stats.CategoryStats = map[string]int{}
	}
	if stats.RecentRegistrations == nil {
		stats.RecentRegistrations = []types.RecentRegistration{}
	}
	return stats, nil
}
