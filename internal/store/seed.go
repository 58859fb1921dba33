package store

import (
	"context"
	"fmt"
	"time"

	"github.com/campus-events/apiserver/internal/clock"
	"github.com/campus-events/apiserver/types"
)

func sampleEvents(now time.Time) []types.Event {
	date := func(value string) types.Date {
		d, _ := types.ParseDate(value)
		return d
	}
	return []types.Event{
		{
			Title:       "Tech Hackathon 2025",
			Description: "Join us for an exciting 48-hour coding challenge!",
			Date:        date("2025-09-01"),
			Time:        "09:00",
			Location:    "Main Campus Auditorium",
			Category:    "Technology",
			Capacity:    100,
			Price:       25.00,
			Image:       "https://images.unsplash.com/photo-1517077304055-6e89abbf09b0?w=400",
			Status:      "active",
			Organizer:   "Computer Science Department",
			Tags:        []string{"coding", "innovation", "networking"},
			CreatedAt:   now,
		},
		{
			Title:       "Cultural Fest 2025",
			Description: "Celebrate diversity through music, dance, and art!",
			Date:        date("2025-09-15"),
			Time:        "18:00",
			Location:    "University Amphitheater",
			Category:    "Cultural",
			Capacity:    200,
			Price:       15.00,
			Image:       "https://images.unsplash.com/photo-1492684223066-81342ee5ff30?w=400",
			Status:      "active",
			Organizer:   "Student Affairs",
			Tags:        []string{"culture", "arts", "celebration"},
			CreatedAt:   now,
		},
		{
			Title:       "Career Fair 2025",
			Description: "Connect with top employers and explore career opportunities!",
			Date:        date("2025-10-01"),
			Time:        "10:00",
			Location:    "Business School",
			Category:    "Career",
			Capacity:    300,
			Price:       0,
			Image:       "https://images.unsplash.com/photo-1552664730-d307ca884978?w=400",
			Status:      "active",
			Organizer:   "Career Services",
			Tags:        []string{"career", "networking", "jobs"},
			CreatedAt:   now,
		},
	}
}

func sampleUsers(now time.Time) []types.User {
	return []types.User{
		{
			Name:           "John Doe",
			Email:          "john@student.edu",
			StudentID:      "STU001",
			Department:     "Computer Science",
			GraduationYear: 2026,
			Phone:          "+1-555-0101",
			CreatedAt:      now,
		},
		{
			Name:           "Jane Smith",
			Email:          "jane@student.edu",
			StudentID:      "STU002",
			Department:     "Business Administration",
			GraduationYear: 2025,
			Phone:          "+1-555-0102",
			CreatedAt:      now,
		},
	}
}

// Seed inserts the sample events and users, each set only into an empty
// table, in one transaction. It returns how many rows of each it added.
func Seed(ctx context.Context, db *DB, clk clock.Clock) (int, int, error) {
	events := NewEventRepository(db)
	users := NewUserRepository(db)
	now := clk.Now()

	var addedEvents, addedUsers int
	err := db.WithTx(ctx, func(ctx context.Context) error {
		if empty, err := tableEmpty(ctx, db, "events"); err != nil {
			return err
		} else if empty {
			for _, event := range sampleEvents(now) {
				if _, err := events.Create(ctx, event); err != nil {
					return err
				}
				addedEvents++
			}
		}

		if empty, err := tableEmpty(ctx, db, "users"); err != nil {
			return err
		} else if empty {
			for _, user := range sampleUsers(now) {
				if _, err := users.Create(ctx, user); err != nil {
					return err
				}
				addedUsers++
			}
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return addedEvents, addedUsers, nil
}

func tableEmpty(ctx context.Context, db *DB, table string) (bool, error) {
	var count int
	if err := db.queryRow(ctx, `SELECT COUNT(*) FROM `+table).Scan(&count); err != nil {
		return false, fmt.Errorf("count %s: %w", table, err)
	}
	return count == 0, nil
}
