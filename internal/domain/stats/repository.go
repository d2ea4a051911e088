package stats

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Overview is the admin dashboard summary.
type Overview struct {
	Users         int64 `db:"users" json:"users"`
	Admins        int64 `db:"admins" json:"admins"`
	BannedUsers   int64 `db:"banned_users" json:"banned_users"`
	PendingResets int64 `db:"pending_resets" json:"pending_resets"`
	BlockedEmails int64 `db:"blocked_emails" json:"blocked_emails"`
	Persons       int64 `db:"persons" json:"persons"`
	Events        int64 `db:"events" json:"events"`
}

const overviewQuery = `
SELECT
	(SELECT COUNT(*) FROM users) AS users,
	(SELECT COUNT(*) FROM users WHERE role = ?) AS admins,
	(SELECT COUNT(*) FROM users WHERE banned = ?) AS banned_users,
	(SELECT COUNT(*) FROM users WHERE reset_allowed = ?) AS pending_resets,
	(SELECT COUNT(*) FROM blocked_emails) AS blocked_emails,
	(SELECT COUNT(*) FROM persons) AS persons,
	(SELECT COUNT(*) FROM events) AS events`

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Overview(ctx context.Context) (*Overview, error) {
	var o Overview
	if err := r.db.GetContext(ctx, &o, r.db.Rebind(overviewQuery), "admin", true, true); err != nil {
		return nil, fmt.Errorf("stats overview: %w", err)
	}
	return &o, nil
}
