package account

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository is the store the lifecycle manager depends on.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	// FindByLogin matches login against the username or the email.
	FindByLogin(ctx context.Context, login string) (*User, error)
	ExistsByIdentity(ctx context.Context, username, email string) (bool, error)
	// Save persists credentials, role and lifecycle fields of u.
	Save(ctx context.Context, u *User) error
	List(ctx context.Context) ([]User, error)

	IsEmailBlocked(ctx context.Context, email string) (bool, error)
	// BlockEmail upserts the denylist entry and bans every user with that
	// email in one transaction. It returns the ids of the banned users.
	BlockEmail(ctx context.Context, entry *BlockedEmail, banReason string) ([]int64, error)
	UnblockEmail(ctx context.Context, email string) error
	ListBlockedEmails(ctx context.Context) ([]BlockedEmail, error)
}

type GormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// Models returns the tables owned by this package, for migrations.
func Models() []any {
	return []any{&userModel{}, &blockedEmailModel{}}
}

type userModel struct {
	ID            int64     `gorm:"column:id;primaryKey"`
	Username      string    `gorm:"column:username;size:120;uniqueIndex;not null"`
	Email         string    `gorm:"column:email;size:200;uniqueIndex;not null"`
	PasswordHash  string    `gorm:"column:password_hash;size:255;not null"`
	Role          string    `gorm:"column:role;size:20;not null;default:user"`
	Banned        bool      `gorm:"column:banned;not null;default:false"`
	BanReason     *string   `gorm:"column:ban_reason"`
	LoginAttempts int       `gorm:"column:login_attempts;not null;default:0"`
	ResetAllowed  bool      `gorm:"column:reset_allowed;not null;default:false"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

func (userModel) TableName() string { return "users" }

type blockedEmailModel struct {
	ID        int64     `gorm:"column:id;primaryKey"`
	Email     string    `gorm:"column:email;size:200;uniqueIndex;not null"`
	Reason    string    `gorm:"column:reason"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (blockedEmailModel) TableName() string { return "blocked_emails" }

func toDomainUser(m userModel) *User {
	var reason string
	if m.BanReason != nil {
		reason = *m.BanReason
	}
	return &User{
		ID:            m.ID,
		Username:      m.Username,
		Email:         m.Email,
		PasswordHash:  m.PasswordHash,
		Role:          Role(m.Role),
		Banned:        m.Banned,
		BanReason:     reason,
		LoginAttempts: m.LoginAttempts,
		ResetAllowed:  m.ResetAllowed,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func toUserModel(u *User) userModel {
	var reason *string
	if u.Banned && u.BanReason != "" {
		v := u.BanReason
		reason = &v
	}
	role := u.Role
	if role == "" {
		role = RoleUser
	}
	return userModel{
		ID:            u.ID,
		Username:      u.Username,
		Email:         NormalizeEmail(u.Email),
		PasswordHash:  u.PasswordHash,
		Role:          string(role),
		Banned:        u.Banned,
		BanReason:     reason,
		LoginAttempts: u.LoginAttempts,
		ResetAllowed:  u.ResetAllowed,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *GormRepository) Create(ctx context.Context, u *User) error {
	m := toUserModel(u)
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateIdentity
		}
		return err
	}
	*u = *toDomainUser(m)
	return nil
}

func (r *GormRepository) GetByID(ctx context.Context, id int64) (*User, error) {
	var m userModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return toDomainUser(m), nil
}

func (r *GormRepository) FindByLogin(ctx context.Context, login string) (*User, error) {
	var m userModel
	err := r.db.WithContext(ctx).
		Where("username = ? OR email = ?", login, NormalizeEmail(login)).
		Order("id").
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return toDomainUser(m), nil
}

func (r *GormRepository) ExistsByIdentity(ctx context.Context, username, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&userModel{}).
		Where("username = ? OR email = ?", username, NormalizeEmail(email)).
		Count(&count).Error
	return count > 0, err
}

func (r *GormRepository) Save(ctx context.Context, u *User) error {
	m := toUserModel(u)
	res := r.db.WithContext(ctx).
		Model(&userModel{ID: u.ID}).
		Select("password_hash", "role", "banned", "ban_reason", "login_attempts", "reset_allowed", "updated_at").
		Updates(&m)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ExpireResetGrants disarms reset grants on accounts left untouched since
// before and reports how many were cleared.
func (r *GormRepository) ExpireResetGrants(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&userModel{}).
		Where("reset_allowed = ? AND updated_at < ?", true, before).
		Update("reset_allowed", false)
	return res.RowsAffected, res.Error
}

func (r *GormRepository) List(ctx context.Context) ([]User, error) {
	var rows []userModel
	if err := r.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	users := make([]User, 0, len(rows))
	for _, m := range rows {
		users = append(users, *toDomainUser(m))
	}
	return users, nil
}

func (r *GormRepository) IsEmailBlocked(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&blockedEmailModel{}).
		Where("email = ?", NormalizeEmail(email)).
		Count(&count).Error
	return count > 0, err
}

func (r *GormRepository) BlockEmail(ctx context.Context, entry *BlockedEmail, banReason string) ([]int64, error) {
	email := NormalizeEmail(entry.Email)
	var banned []int64

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m := blockedEmailModel{Email: email, Reason: entry.Reason}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoUpdates: clause.AssignmentColumns([]string{"reason"}),
		}).Create(&m).Error; err != nil {
			return err
		}

		if err := tx.Model(&userModel{}).Where("email = ?", email).Pluck("id", &banned).Error; err != nil {
			return err
		}
		if len(banned) == 0 {
			return nil
		}

		return tx.Model(&userModel{}).
			Where("id IN ?", banned).
			Updates(map[string]any{
				"banned":         true,
				"ban_reason":     banReason,
				"login_attempts": 0,
			}).Error
	})
	if err != nil {
		return nil, err
	}

	entry.Email = email
	return banned, nil
}

func (r *GormRepository) UnblockEmail(ctx context.Context, email string) error {
	return r.db.WithContext(ctx).
		Where("email = ?", NormalizeEmail(email)).
		Delete(&blockedEmailModel{}).Error
}

func (r *GormRepository) ListBlockedEmails(ctx context.Context) ([]BlockedEmail, error) {
	var rows []blockedEmailModel
	if err := r.db.WithContext(ctx).Order("email").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]BlockedEmail, 0, len(rows))
	for _, m := range rows {
		out = append(out, BlockedEmail{Email: m.Email, Reason: m.Reason, CreatedAt: m.CreatedAt})
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
