package user

import (
	"context"

	"github.com/google/uuid"

	domain "room-user-service/internal/domain/user"
)

// Usecase defines the interface for user business logic operations.
type Usecase interface {
	ListUsers(ctx context.Context, caller *domain.User, in ListUsersRequest) ([]User, error)
	CreateUser(ctx context.Context, caller *domain.User, in CreateUserRequest) (*User, error)
	UpdateMe(ctx context.Context, caller *domain.User, in UpdateMeRequest) (*User, error)
	GetMe(ctx context.Context, caller *domain.User) (*User, error)
	RegisterOpen(ctx context.Context, in OpenRegistrationRequest) (*User, error)
	GetUser(ctx context.Context, caller *domain.User, id uuid.UUID) (*User, error)
	DeactivateUser(ctx context.Context, caller *domain.User, id uuid.UUID) (*User, error)
	ActivateUser(ctx context.Context, caller *domain.User, id uuid.UUID) (*User, error)
	UpdateUser(ctx context.Context, caller *domain.User, in UpdateUserRequest) (*User, error)

	Login(ctx context.Context, in LoginRequest) (*Token, error)
	ResolveCaller(ctx context.Context, accessToken string) (*domain.User, error)
	RecoverPassword(ctx context.Context, email string) (*Message, error)
	ResetPassword(ctx context.Context, in ResetPasswordRequest) (*Message, error)
	ValidateEmail(ctx context.Context, in ValidateEmailRequest) (*Message, error)
}

// MembershipReader answers the room co-membership question used to gate
// activation and deactivation.
type MembershipReader interface {
	ShareRoom(ctx context.Context, callerID, targetID uuid.UUID) (bool, error)
}

// PasswordHasher turns plaintext passwords into stored hashes.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// TokenIssuer mints and verifies the tokens the service hands out.
type TokenIssuer interface {
	NewAccessToken(userID uuid.UUID) (string, error)
	ParseAccessToken(token string) (uuid.UUID, error)
	NewEmailValidToken(email string) (string, error)
	VerifyEmailValidToken(token string) (string, error)
	NewPasswordResetToken(email string) (string, error)
	VerifyPasswordResetToken(token string) (string, error)
}

// Mailer dispatches transactional emails. Implementations must not block
// on delivery.
type Mailer interface {
	SendNewAccount(ctx context.Context, msg NewAccountEmail) error
	SendResetPassword(ctx context.Context, msg ResetPasswordEmail) error
}
