package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"go.uber.org/zap"

	domain "room-user-service/internal/domain/user"
	pkgerrors "room-user-service/pkg/errors"
	"room-user-service/pkg/logger"
	"room-user-service/pkg/security"
)

const (
	// DefaultListLimit is used when a list request carries no limit.
	DefaultListLimit = 100
)

// Repository defines the interface for user data access operations.
// It abstracts the data layer, allowing different implementations
// (e.g., PostgreSQL, in-memory) to be used interchangeably.
type Repository interface {
	// Create a new user; duplicate email is a ConflictError.
	Create(ctx context.Context, u *domain.User) (*domain.User, error)
	// GetByID retrieves a user by ID; a miss is a NotFoundError.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	// GetByEmail retrieves a user by email; a miss is nil, nil.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// Update writes only the columns set in p and returns the stored user.
	Update(ctx context.Context, id uuid.UUID, p domain.Patch) (*domain.User, error)
	// List returns users in store order.
	List(ctx context.Context, skip, limit int) ([]domain.User, error)
}

// Deps groups the collaborators of Service.
type Deps struct {
	Repo   Repository
	Rooms  MembershipReader
	Hasher PasswordHasher
	Tokens TokenIssuer
	Mailer Mailer // optional; nil disables dispatch regardless of settings
}

// Service implements the business logic for user management operations.
// It provides a clean separation between the transport layer and data layer.
type Service struct {
	repo     Repository
	rooms    MembershipReader
	hasher   PasswordHasher
	tokens   TokenIssuer
	mailer   Mailer
	settings Settings
	log      *zap.Logger
	validate *validator.Validate

	genPassword func() (string, error)
}

var _ Usecase = (*Service)(nil)

// New creates a new Service.
func New(d Deps, settings Settings, log *zap.Logger) *Service {
	return &Service{
		repo:        d.Repo,
		rooms:       d.Rooms,
		hasher:      d.Hasher,
		tokens:      d.Tokens,
		mailer:      d.Mailer,
		settings:    settings,
		log:         log,
		validate:    validator.New(),
		genPassword: security.GeneratePassword,
	}
}

func (s *Service) ctxLog(ctx context.Context) *zap.Logger {
	return logger.WithContext(ctx, s.log)
}

// formatValidationError converts validator.ValidationErrors into a human-readable error message.
func formatValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var messages []string
		for _, e := range validationErrors {
			switch e.Tag() {
			case "required":
				messages = append(messages, fmt.Sprintf("%s is required", e.Field()))
			case "email":
				messages = append(messages, fmt.Sprintf("%s must be a valid email", e.Field()))
			case "min":
				messages = append(messages, fmt.Sprintf("%s must be at least %s characters", e.Field(), e.Param()))
			case "max":
				messages = append(messages, fmt.Sprintf("%s must be at most %s characters", e.Field(), e.Param()))
			default:
				messages = append(messages, fmt.Sprintf("%s is invalid", e.Field()))
			}
		}
		return pkgerrors.NewValidationError("", strings.Join(messages, ", "))
	}
	return pkgerrors.NewValidationError("", err.Error())
}

// requireLevel is the service-side half of the access guard.
func requireLevel(caller *domain.User, level domain.AccessLevel) error {
	if caller == nil {
		return pkgerrors.NewUnauthorizedError("not authenticated")
	}
	if !caller.IsActive {
		return pkgerrors.NewForbiddenError("inactive user")
	}
	if !caller.Satisfies(level) {
		return pkgerrors.NewForbiddenError("the user doesn't have enough privileges")
	}
	return nil
}

func (s *Service) toPublic(u *domain.User) (*User, error) {
	var out User
	if err := copier.Copy(&out, u); err != nil {
		return nil, pkgerrors.NewInternalError("failed to render user", err)
	}
	return &out, nil
}

// ensureEmailFree fails with a ConflictError when email belongs to a user
// other than owner.
func (s *Service) ensureEmailFree(ctx context.Context, email string, owner uuid.UUID) error {
	existing, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		s.ctxLog(ctx).Error("failed to check existing email", zap.String("email", email), zap.Error(err))
		return pkgerrors.NewInternalError("failed to validate email uniqueness", err)
	}
	if existing != nil && existing.ID != owner {
		s.ctxLog(ctx).Warn("email already exists", zap.String("email", email), zap.String("existing_id", existing.ID.String()))
		return pkgerrors.NewConflictError("user", "the user with this email already exists in the system")
	}
	return nil
}

// insert hashes password and persists u. The unique index on email closes
// the race left open by the existence check.
func (s *Service) insert(ctx context.Context, u *domain.User, password string) (*domain.User, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.ctxLog(ctx).Error("failed to hash password", zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to create user", err)
	}
	u.HashedPassword = hash

	created, err := s.repo.Create(ctx, u)
	if err != nil {
		s.ctxLog(ctx).Warn("failed to create user", zap.String("email", u.Email), zap.Error(err))
		return nil, err
	}
	return created, nil
}

func (s *Service) sendNewAccount(ctx context.Context, msg NewAccountEmail) {
	if s.mailer == nil {
		return
	}
	if err := s.mailer.SendNewAccount(ctx, msg); err != nil {
		s.ctxLog(ctx).Warn("failed to dispatch new account email", zap.String("email", msg.To), zap.Error(err))
	}
}

// ListUsers returns a page of users. Only active superusers may list.
func (s *Service) ListUsers(ctx context.Context, caller *domain.User, in ListUsersRequest) ([]User, error) {
	if err := requireLevel(caller, domain.ActiveSuperuser); err != nil {
		return nil, err
	}
	if in.Skip < 0 {
		in.Skip = 0
	}
	if in.Limit < 0 {
		in.Limit = DefaultListLimit
	}
	if in.Limit == 0 {
		return []User{}, nil
	}

	s.ctxLog(ctx).Info("listing users", zap.Int("skip", in.Skip), zap.Int("limit", in.Limit))

	domainUsers, err := s.repo.List(ctx, in.Skip, in.Limit)
	if err != nil {
		s.ctxLog(ctx).Error("failed to list users", zap.Int("skip", in.Skip), zap.Int("limit", in.Limit), zap.Error(err))
		return nil, err
	}

	users := make([]User, 0, len(domainUsers))
	if err := copier.Copy(&users, &domainUsers); err != nil {
		return nil, pkgerrors.NewInternalError("failed to render users", err)
	}
	return users, nil
}

// CreateUser creates a user on behalf of an active superuser and, when
// emails are enabled, sends the new-account email with a validation token.
func (s *Service) CreateUser(ctx context.Context, caller *domain.User, in CreateUserRequest) (*User, error) {
	if err := requireLevel(caller, domain.ActiveSuperuser); err != nil {
		return nil, err
	}

	s.ctxLog(ctx).Info("creating user", zap.String("email", in.Email), zap.String("created_by", caller.ID.String()))

	if err := s.validate.Struct(in); err != nil {
		s.ctxLog(ctx).Warn("validate failed", zap.Error(err))
		return nil, formatValidationError(err)
	}

	email := domain.NormalizeEmail(in.Email)
	if err := s.ensureEmailFree(ctx, email, uuid.Nil); err != nil {
		return nil, err
	}

	var token string
	if s.settings.EmailsEnabled && email != "" {
		t, err := s.tokens.NewEmailValidToken(email)
		if err != nil {
			s.ctxLog(ctx).Error("failed to generate email validation token", zap.Error(err))
			return nil, pkgerrors.NewInternalError("failed to create user", err)
		}
		token = t
	}

	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}

	created, err := s.insert(ctx, &domain.User{
		Email:             email,
		FullName:          in.FullName,
		IsActive:          active,
		IsSuperuser:       in.IsSuperuser,
		IsOnboarding:      in.IsOnboarding,
		IsEmailValidation: in.IsEmailValidation,
	}, in.Password)
	if err != nil {
		return nil, err
	}

	if token != "" {
		s.sendNewAccount(ctx, NewAccountEmail{
			To:       created.Email,
			Username: created.Email,
			Password: in.Password,
			Token:    token,
		})
	}

	return s.toPublic(created)
}

// profilePatch turns the profile fields of a request into a patch for the
// user identified by owner. Absent fields stay out of the patch.
func (s *Service) profilePatch(ctx context.Context, owner uuid.UUID, email, password, fullName *string) (domain.Patch, error) {
	var p domain.Patch
	if email != nil {
		normalized := domain.NormalizeEmail(*email)
		if err := s.ensureEmailFree(ctx, normalized, owner); err != nil {
			return p, err
		}
		p.Email = &normalized
	}
	if fullName != nil {
		p.FullName = fullName
	}
	if password != nil {
		hash, err := s.hasher.Hash(*password)
		if err != nil {
			s.ctxLog(ctx).Error("failed to hash password", zap.Error(err))
			return p, pkgerrors.NewInternalError("failed to update user", err)
		}
		p.HashedPassword = &hash
	}
	return p, nil
}

// UpdateMe applies a partial profile update to the caller's own record.
func (s *Service) UpdateMe(ctx context.Context, caller *domain.User, in UpdateMeRequest) (*User, error) {
	if err := requireLevel(caller, domain.Active); err != nil {
		return nil, err
	}

	s.ctxLog(ctx).Info("updating own profile", zap.String("id", caller.ID.String()))

	if err := s.validate.Struct(in); err != nil {
		s.ctxLog(ctx).Warn("validate failed", zap.Error(err))
		return nil, formatValidationError(err)
	}

	patch, err := s.profilePatch(ctx, caller.ID, in.Email, in.Password, in.FullName)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, caller.ID, patch)
	if err != nil {
		s.ctxLog(ctx).Error("failed to update own profile", zap.String("id", caller.ID.String()), zap.Error(err))
		return nil, err
	}
	return s.toPublic(updated)
}

// GetMe returns the caller's own record.
func (s *Service) GetMe(ctx context.Context, caller *domain.User) (*User, error) {
	if err := requireLevel(caller, domain.Active); err != nil {
		return nil, err
	}
	return s.toPublic(caller)
}

// RegisterOpen creates an onboarding account without authentication. The
// initial password is random and only ever leaves the service by email.
func (s *Service) RegisterOpen(ctx context.Context, in OpenRegistrationRequest) (*User, error) {
	if !s.settings.OpenRegistration {
		s.ctxLog(ctx).Warn("open registration attempted while disabled")
		return nil, pkgerrors.NewForbiddenError("open user registration is forbidden on this server")
	}

	if err := s.validate.Struct(in); err != nil {
		s.ctxLog(ctx).Warn("validate failed", zap.Error(err))
		return nil, formatValidationError(err)
	}

	email := domain.NormalizeEmail(in.Email)
	s.ctxLog(ctx).Info("open registration", zap.String("email", email))

	if err := s.ensureEmailFree(ctx, email, uuid.Nil); err != nil {
		return nil, err
	}

	password, err := s.genPassword()
	if err != nil {
		s.ctxLog(ctx).Error("failed to generate password", zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to create user", err)
	}

	token, err := s.tokens.NewEmailValidToken(email)
	if err != nil {
		s.ctxLog(ctx).Error("failed to generate email validation token", zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to create user", err)
	}

	fullName := domain.LocalPart(email)
	created, err := s.insert(ctx, &domain.User{
		Email:             email,
		FullName:          fullName,
		IsActive:          true,
		IsOnboarding:      true,
		IsEmailValidation: false,
	}, password)
	if err != nil {
		return nil, err
	}

	if s.settings.EmailsEnabled {
		s.sendNewAccount(ctx, NewAccountEmail{
			To:       created.Email,
			Username: fullName,
			Password: password,
			Token:    token,
		})
	}

	return s.toPublic(created)
}

// GetUser returns a user by id. A missing id is a NotFoundError.
func (s *Service) GetUser(ctx context.Context, caller *domain.User, id uuid.UUID) (*User, error) {
	if err := requireLevel(caller, domain.ActiveSuperuser); err != nil {
		return nil, err
	}

	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.ctxLog(ctx).Warn("failed to get user", zap.String("id", id.String()), zap.Error(err))
		return nil, err
	}
	return s.toPublic(u)
}

// DeactivateUser sets is_active=false on a room-mate of the caller.
func (s *Service) DeactivateUser(ctx context.Context, caller *domain.User, id uuid.UUID) (*User, error) {
	return s.setActive(ctx, caller, id, false)
}

// ActivateUser sets is_active=true on a room-mate of the caller.
func (s *Service) ActivateUser(ctx context.Context, caller *domain.User, id uuid.UUID) (*User, error) {
	return s.setActive(ctx, caller, id, true)
}

func (s *Service) setActive(ctx context.Context, caller *domain.User, id uuid.UUID, active bool) (*User, error) {
	if err := requireLevel(caller, domain.ActiveSuperuser); err != nil {
		return nil, err
	}

	shared, err := s.rooms.ShareRoom(ctx, caller.ID, id)
	if err != nil {
		s.ctxLog(ctx).Error("failed to check room membership", zap.String("target_id", id.String()), zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to check room membership", err)
	}
	if !shared {
		s.ctxLog(ctx).Warn("caller shares no room with target",
			zap.String("caller_id", caller.ID.String()), zap.String("target_id", id.String()))
		return nil, pkgerrors.NewForbiddenError("the user doesn't have enough privilege")
	}

	updated, err := s.repo.Update(ctx, id, domain.Patch{IsActive: &active})
	if err != nil {
		s.ctxLog(ctx).Error("failed to set user active flag", zap.String("id", id.String()), zap.Bool("active", active), zap.Error(err))
		return nil, err
	}

	s.ctxLog(ctx).Info("user active flag changed", zap.String("id", id.String()), zap.Bool("active", active))
	return s.toPublic(updated)
}

// UpdateUser applies a partial update to any user on behalf of an active superuser.
func (s *Service) UpdateUser(ctx context.Context, caller *domain.User, in UpdateUserRequest) (*User, error) {
	if err := requireLevel(caller, domain.ActiveSuperuser); err != nil {
		return nil, err
	}

	s.ctxLog(ctx).Info("updating user", zap.String("id", in.ID.String()))

	if err := s.validate.Struct(in); err != nil {
		s.ctxLog(ctx).Warn("validate failed", zap.Error(err))
		return nil, formatValidationError(err)
	}

	if _, err := s.repo.GetByID(ctx, in.ID); err != nil {
		var notFound *pkgerrors.NotFoundError
		if errors.As(err, &notFound) {
			return nil, pkgerrors.NewNotFoundError("user", "the user with this id does not exist in the system")
		}
		return nil, err
	}

	patch, err := s.profilePatch(ctx, in.ID, in.Email, in.Password, in.FullName)
	if err != nil {
		return nil, err
	}
	patch.IsActive = in.IsActive
	patch.IsSuperuser = in.IsSuperuser
	patch.IsOnboarding = in.IsOnboarding
	patch.IsEmailValidation = in.IsEmailValidation

	updated, err := s.repo.Update(ctx, in.ID, patch)
	if err != nil {
		s.ctxLog(ctx).Error("failed to update user", zap.String("id", in.ID.String()), zap.Error(err))
		return nil, err
	}
	return s.toPublic(updated)
}
