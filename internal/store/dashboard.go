package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/campus-events/apiserver/types"
)

// DashboardRepository computes the admin summary straight from the tables.
type DashboardRepository struct {
	db *DB
}

func NewDashboardRepository(db *DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// RecentLimit is the number of registrations in the recent-activity feed.
const RecentLimit = 5

func (r *DashboardRepository) Stats(ctx context.Context) (types.DashboardStats, error) {
	var stats types.DashboardStats

	const totals = `
		SELECT
			(SELECT COUNT(*) FROM events),
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM registrations),
			(SELECT COALESCE(SUM(amount), 0) FROM registrations WHERE payment_status = $1)`
	if err := r.db.queryRow(ctx, totals, string(types.PaymentCompleted)).Scan(
		&stats.TotalEvents,
		&stats.TotalUsers,
		&stats.TotalRegistrations,
		&stats.TotalRevenue,
	); err != nil {
		return types.DashboardStats{}, fmt.Errorf("dashboard totals: %w", err)
	}

	categories, err := r.categoryCounts(ctx)
	if err != nil {
		return types.DashboardStats{}, err
	}
	stats.CategoryStats = categories

	recent, err := r.recent(ctx)
	if err != nil {
		return types.DashboardStats{}, err
	}
	stats.RecentRegistrations = recent

	return stats, nil
}

func (r *DashboardRepository) categoryCounts(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.query(ctx, `SELECT category, COUNT(*) FROM events GROUP BY category`)
	if err != nil {
		return nil, fmt.Errorf("dashboard categories: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			category string
			count    int
		)
		if err := rows.Scan(&category, &count); err != nil {
			return nil, err
		}
		counts[category] = count
	}
	return counts, rows.Err()
}

func (r *DashboardRepository) recent(ctx context.Context) ([]types.RecentRegistration, error) {
	const query = `
		SELECT r.id, r.registration_date, u.name, u.email, e.title
		FROM registrations r
		LEFT JOIN users u ON u.id = r.user_id
		LEFT JOIN events e ON e.id = r.event_id
		ORDER BY r.registration_date DESC
		LIMIT $1`
	rows, err := r.db.query(ctx, query, RecentLimit)
	if err != nil {
		return nil, fmt.Errorf("dashboard recent registrations: %w", err)
	}
	defer rows.Close()

	recent := make([]types.RecentRegistration, 0, RecentLimit)
	for rows.Next() {
		var (
			item                types.RecentRegistration
			userName, userEmail sql.NullString
			eventTitle          sql.NullString
		)
		if err := rows.Scan(&item.ID, &item.RegistrationDate, &userName, &userEmail, &eventTitle); err != nil {
			return nil, err
		}
		if userName.Valid {
			item.User = &types.RecentUser{Name: userName.String, Email: userEmail.String}
		}
		if eventTitle.Valid {
			item.Event = &types.RecentEventTitle{Title: eventTitle.String}
		}
		recent = append(recent, item)
	}
	return recent, rows.Err()
}
