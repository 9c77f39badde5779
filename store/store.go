package store

import (
	"context"
	"fmt"
	"time"
)

// Store provides manual-SQL data access for queries that don't fit the ORM,
// currently the admin dashboard statistics.
type Store struct {
	DB *DB
}

func New(db *DB) *Store {
	return &Store{DB: db}
}

func (s *Store) ensureDB() error {
	if s == nil || s.DB == nil || s.DB.DB == nil {
		return fmt.Errorf("nil db")
	}
	return nil
}

// Stats is the admin dashboard summary.
type Stats struct {
	Users         int64 `json:"users" db:"users"`
	Scholarships  int64 `json:"scholarships" db:"scholarships"`
	Bookmarks     int64 `json:"bookmarks" db:"bookmarks"`
	RecentSignups int64 `json:"recent_signups" db:"recent_signups"`
}

// DashboardStats aggregates catalog and user counts in one round trip per
// table. Soft-deleted rows are excluded.
func (s *Store) DashboardStats(ctx context.Context) (Stats, error) {
	var stats Stats
	if err := s.ensureDB(); err != nil {
		return stats, err
	}

	queries := map[string]*int64{
		"SELECT COUNT(*) FROM users WHERE deleted_at IS NULL":        &stats.Users,
		"SELECT COUNT(*) FROM scholarships WHERE deleted_at IS NULL": &stats.Scholarships,
		"SELECT COUNT(*) FROM bookmarks WHERE deleted_at IS NULL":    &stats.Bookmarks,
	}
	for q, dst := range queries {
		if err := s.DB.GetContext(ctx, dst, q); err != nil {
			return stats, err
		}
	}

	since := time.Now().AddDate(0, 0, -7)
	stmt := s.DB.Rebind("SELECT COUNT(*) FROM users WHERE deleted_at IS NULL AND created_at >= ?")
	if err := s.DB.GetContext(ctx, &stats.RecentSignups, stmt, since); err != nil {
		return stats, err
	}
	return stats, nil
}
