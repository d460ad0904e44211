package user

import "github.com/google/uuid"

// Settings are the feature switches the service consults.
type Settings struct {
	EmailsEnabled    bool // EmailsEnabled gates every outbound email
	OpenRegistration bool // OpenRegistration gates unauthenticated sign-up
}

// User is the public representation of an account. It never carries the
// password hash.
type User struct {
	ID                uuid.UUID
	Email             string
	FullName          string
	IsActive          bool
	IsSuperuser       bool
	IsOnboarding      bool
	IsEmailValidation bool
}

// ListUsersRequest represents the request payload for listing users.
type ListUsersRequest struct {
	Skip  int
	Limit int
}

// CreateUserRequest represents the request payload for creating a new user.
// IsActive defaults to true when nil.
type CreateUserRequest struct {
	Email             string `validate:"required,email"`
	Password          string `validate:"required"`
	FullName          string `validate:"max=255"`
	IsActive          *bool
	IsSuperuser       bool
	IsOnboarding      bool
	IsEmailValidation bool
}

// UpdateMeRequest represents a self-service profile update. Only non-nil
// fields are applied.
type UpdateMeRequest struct {
	Password *string `validate:"omitempty,min=1"`
	FullName *string `validate:"omitempty,max=255"`
	Email    *string `validate:"omitempty,email"`
}

// UpdateUserRequest represents an administrative update of an existing
// user. Only non-nil fields are applied.
type UpdateUserRequest struct {
	ID                uuid.UUID `validate:"required"`
	Email             *string   `validate:"omitempty,email"`
	Password          *string   `validate:"omitempty,min=1"`
	FullName          *string   `validate:"omitempty,max=255"`
	IsActive          *bool
	IsSuperuser       *bool
	IsOnboarding      *bool
	IsEmailValidation *bool
}

// OpenRegistrationRequest represents an unauthenticated sign-up.
type OpenRegistrationRequest struct {
	Email string `validate:"required,email"`
}

// LoginRequest represents a password login.
type LoginRequest struct {
	Email    string `validate:"required"`
	Password string `validate:"required"`
}

// Token is the result of a successful login.
type Token struct {
	AccessToken string
	TokenType   string
}

// ResetPasswordRequest represents a password reset with an emailed token.
type ResetPasswordRequest struct {
	Token       string `validate:"required"`
	NewPassword string `validate:"required"`
}

// ValidateEmailRequest confirms an email address and sets the first password.
type ValidateEmailRequest struct {
	Token    string `validate:"required"`
	Password string `validate:"required"`
}

// Message is a plain acknowledgement.
type Message struct {
	Msg string
}

// NewAccountEmail is the payload of the "new account" email.
type NewAccountEmail struct {
	To       string
	Username string
	Password string
	Token    string
}

// ResetPasswordEmail is the payload of the "reset password" email.
type ResetPasswordEmail struct {
	To    string
	Email string
	Token string
}
