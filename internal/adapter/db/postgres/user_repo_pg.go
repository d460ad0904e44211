package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"room-user-service/internal/domain/user"
	pkgerrors "room-user-service/pkg/errors"
)

// UserRepoPG implements the user Repository interface using PostgreSQL and GORM.
type UserRepoPG struct {
	db  *gorm.DB    // GORM database connection
	log *zap.Logger // Structured logger for database operations
}

// NewUserRepoPG creates a new instance of UserRepoPG.
func NewUserRepoPG(db *gorm.DB, log *zap.Logger) *UserRepoPG {
	return &UserRepoPG{db: db, log: log}
}

// UserSchema represents the database schema for the users table.
// Boolean columns carry no gorm default so that an explicit false is written.
type UserSchema struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey"`
	FullName          string    `gorm:"index"`
	Email             string    `gorm:"not null;uniqueIndex"`
	HashedPassword    string    `gorm:"not null"`
	IsActive          bool      `gorm:"not null"`
	IsSuperuser       bool      `gorm:"not null"`
	IsOnboarding      bool      `gorm:"not null"`
	IsEmailValidation bool      `gorm:"not null"`
	CreatedAt         time.Time `gorm:"index"`
	UpdatedAt         time.Time
}

// TableName specifies the table name for the UserSchema model.
func (UserSchema) TableName() string {
	return "users"
}

func toSchema(u *user.User) UserSchema {
	return UserSchema{
		ID:                u.ID,
		FullName:          u.FullName,
		Email:             u.Email,
		HashedPassword:    u.HashedPassword,
		IsActive:          u.IsActive,
		IsSuperuser:       u.IsSuperuser,
		IsOnboarding:      u.IsOnboarding,
		IsEmailValidation: u.IsEmailValidation,
	}
}

func (m *UserSchema) toDomain() *user.User {
	return &user.User{
		ID:                m.ID,
		Email:             m.Email,
		HashedPassword:    m.HashedPassword,
		FullName:          m.FullName,
		IsActive:          m.IsActive,
		IsSuperuser:       m.IsSuperuser,
		IsOnboarding:      m.IsOnboarding,
		IsEmailValidation: m.IsEmailValidation,
	}
}

// isDuplicateKey reports whether err is a unique constraint violation.
// TranslateError covers both drivers; the string match is a fallback for
// connections opened without it.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

// Create inserts a new user. A nil ID is replaced with a fresh random one.
func (r *UserRepoPG) Create(ctx context.Context, u *user.User) (*user.User, error) {
	if u == nil {
		return nil, errors.New("user cannot be nil")
	}

	model := toSchema(u)
	if model.ID == uuid.Nil {
		model.ID = uuid.New()
	}

	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if isDuplicateKey(err) {
			r.log.Warn("duplicate email on insert", zap.String("email", u.Email))
			return nil, pkgerrors.NewConflictError("user", "the user with this email already exists in the system")
		}
		r.log.Error("failed to create user in db", zap.Error(err), zap.String("email", u.Email))
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	r.log.Info("user created in db", zap.String("id", model.ID.String()))
	return model.toDomain(), nil
}

// patchColumns maps the non-nil fields of p to their column names.
func patchColumns(p user.Patch) map[string]any {
	cols := make(map[string]any, 7)
	if p.Email != nil {
		cols["email"] = *p.Email
	}
	if p.HashedPassword != nil {
		cols["hashed_password"] = *p.HashedPassword
	}
	if p.FullName != nil {
		cols["full_name"] = *p.FullName
	}
	if p.IsActive != nil {
		cols["is_active"] = *p.IsActive
	}
	if p.IsSuperuser != nil {
		cols["is_superuser"] = *p.IsSuperuser
	}
	if p.IsOnboarding != nil {
		cols["is_onboarding"] = *p.IsOnboarding
	}
	if p.IsEmailValidation != nil {
		cols["is_email_validation"] = *p.IsEmailValidation
	}
	return cols
}

// Update writes only the columns named by p in a single statement, so
// columns changed concurrently by another request are left alone.
func (r *UserRepoPG) Update(ctx context.Context, id uuid.UUID, p user.Patch) (*user.User, error) {
	if p.IsEmpty() {
		return r.GetByID(ctx, id)
	}

	res := r.db.WithContext(ctx).
		Model(&UserSchema{}).
		Where("id = ?", id).
		Updates(patchColumns(p))
	if err := res.Error; err != nil {
		if isDuplicateKey(err) {
			r.log.Warn("duplicate email on update", zap.String("id", id.String()))
			return nil, pkgerrors.NewConflictError("user", "the user with this email already exists in the system")
		}
		r.log.Error("failed to update user in db", zap.Error(err), zap.String("id", id.String()))
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	if res.RowsAffected == 0 {
		return nil, pkgerrors.NewNotFoundError("user", "the user with this id does not exist in the system")
	}

	r.log.Info("user updated in db", zap.String("id", id.String()))
	return r.GetByID(ctx, id)
}

// GetByID retrieves a user by id. A miss is reported as a NotFoundError.
func (r *UserRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	var model UserSchema
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Debug("user not found", zap.String("id", id.String()))
			return nil, pkgerrors.NewNotFoundError("user", "the user with this id does not exist in the system")
		}
		r.log.Error("failed to get user from db", zap.Error(err), zap.String("id", id.String()))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return model.toDomain(), nil
}

// GetByEmail retrieves a user by email. A miss returns nil, nil.
func (r *UserRepoPG) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	var model UserSchema
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Debug("user not found by email", zap.String("email", email))
			return nil, nil
		}
		r.log.Error("failed to get user by email from db", zap.Error(err), zap.String("email", email))
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return model.toDomain(), nil
}

// List returns users in creation order starting at offset skip.
func (r *UserRepoPG) List(ctx context.Context, skip, limit int) ([]user.User, error) {
	var models []UserSchema
	if err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Order("id ASC").
		Offset(skip).
		Limit(limit).
		Find(&models).Error; err != nil {
		r.log.Error("failed to list users from db", zap.Error(err), zap.Int("skip", skip), zap.Int("limit", limit))
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	users := make([]user.User, len(models))
	for i := range models {
		users[i] = *models[i].toDomain()
	}

	return users, nil
}
