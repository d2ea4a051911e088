package audit

import (
	"context"
	"time"

	"gorm.io/gorm"

	"vivwendy/internal/domain/account"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// Record is one persisted lifecycle event.
type Record struct {
	ID        int64             `json:"id"`
	Type      account.EventType `json:"type"`
	UserID    int64             `json:"user_id,omitempty"`
	Email     string            `json:"email,omitempty"`
	Reason    string            `json:"reason,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

type recordModel struct {
	ID        int64     `gorm:"column:id;primaryKey"`
	Type      string    `gorm:"column:type;size:40;not null;index"`
	UserID    *int64    `gorm:"column:user_id;index"`
	Email     *string   `gorm:"column:email;size:200"`
	Reason    *string   `gorm:"column:reason"`
	CreatedAt time.Time `gorm:"column:created_at;index"`
}

func (recordModel) TableName() string { return "audit_events" }

func Models() []any {
	return []any{&recordModel{}}
}

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Append(ctx context.Context, e account.Event) error {
	at := e.At
	if at.IsZero() {
		at = time.Now()
	}
	m := &recordModel{
		Type:      string(e.Type),
		UserID:    nullableID(e.UserID),
		Email:     nullableString(e.Email),
		Reason:    nullableString(e.Reason),
		CreatedAt: at,
	}
	return s.db.WithContext(ctx).Create(m).Error
}

// Recent returns the newest records first. userID 0 means all users.
func (s *Store) Recent(ctx context.Context, userID int64, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	q := s.db.WithContext(ctx).Order("created_at DESC, id DESC").Limit(limit)
	if userID > 0 {
		q = q.Where("user_id = ?", userID)
	}

	var rows []recordModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]Record, 0, len(rows))
	for _, m := range rows {
		r := Record{ID: m.ID, Type: account.EventType(m.Type), CreatedAt: m.CreatedAt}
		if m.UserID != nil {
			r.UserID = *m.UserID
		}
		if m.Email != nil {
			r.Email = *m.Email
		}
		if m.Reason != nil {
			r.Reason = *m.Reason
		}
		out = append(out, r)
	}
	return out, nil
}

func nullableID(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
