package types

import "time"

// DashboardStats is the admin summary recomputed on every request.
type DashboardStats struct {
	TotalEvents         int                  `json:"total_events"`
	TotalUsers          int                  `json:"total_users"`
	TotalRegistrations  int                  `json:"total_registrations"`
	TotalRevenue        float64              `json:"total_revenue"`
	CategoryStats       map[string]int       `json:"category_stats"`
	RecentRegistrations []RecentRegistration `json:"recent_registrations"`
}

// RecentRegistration is one entry of the recent-activity feed.
type RecentRegistration struct {
	ID               string            `json:"id"`
	RegistrationDate time.Time         `json:"registration_date"`
	User             *RecentUser       `json:"user"`
	Event            *RecentEventTitle `json:"event"`
}

type RecentUser struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type RecentEventTitle struct {
	Title string `json:"title"`
}
