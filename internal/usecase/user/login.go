package user

import (
	"context"
	"errors"

	"go.uber.org/zap"

	domain "room-user-service/internal/domain/user"
	pkgerrors "room-user-service/pkg/errors"
)

// TokenTypeBearer is the token_type reported for access tokens.
const TokenTypeBearer = "bearer"

// Login exchanges an email and password for an access token.
func (s *Service) Login(ctx context.Context, in LoginRequest) (*Token, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, formatValidationError(err)
	}

	email := domain.NormalizeEmail(in.Email)
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		s.ctxLog(ctx).Error("failed to load user for login", zap.String("email", email), zap.Error(err))
		return nil, err
	}
	if u == nil || !s.hasher.Verify(in.Password, u.HashedPassword) {
		s.ctxLog(ctx).Warn("login rejected", zap.String("email", email))
		return nil, pkgerrors.NewUnauthorizedError("incorrect email or password")
	}
	if !u.IsActive {
		return nil, pkgerrors.NewForbiddenError("inactive user")
	}

	token, err := s.tokens.NewAccessToken(u.ID)
	if err != nil {
		s.ctxLog(ctx).Error("failed to issue access token", zap.String("id", u.ID.String()), zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to issue access token", err)
	}

	s.ctxLog(ctx).Info("user logged in", zap.String("id", u.ID.String()))
	return &Token{AccessToken: token, TokenType: TokenTypeBearer}, nil
}

// ResolveCaller loads the user an access token was issued to. The record is
// read from the store on every call; activity is left to the caller's guard.
func (s *Service) ResolveCaller(ctx context.Context, accessToken string) (*domain.User, error) {
	id, err := s.tokens.ParseAccessToken(accessToken)
	if err != nil {
		s.ctxLog(ctx).Debug("rejected access token", zap.Error(err))
		return nil, pkgerrors.NewUnauthorizedError("could not validate credentials")
	}

	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		var notFound *pkgerrors.NotFoundError
		if errors.As(err, &notFound) {
			return nil, pkgerrors.NewUnauthorizedError("could not validate credentials")
		}
		return nil, err
	}
	return u, nil
}

// RecoverPassword issues a password reset token and emails it.
func (s *Service) RecoverPassword(ctx context.Context, email string) (*Message, error) {
	email = domain.NormalizeEmail(email)
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, pkgerrors.NewNotFoundError("user", "the user with this email does not exist in the system")
	}

	token, err := s.tokens.NewPasswordResetToken(u.Email)
	if err != nil {
		s.ctxLog(ctx).Error("failed to issue password reset token", zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to issue password reset token", err)
	}

	if s.settings.EmailsEnabled && s.mailer != nil {
		if err := s.mailer.SendResetPassword(ctx, ResetPasswordEmail{To: u.Email, Email: u.Email, Token: token}); err != nil {
			s.ctxLog(ctx).Warn("failed to dispatch reset password email", zap.String("email", u.Email), zap.Error(err))
		}
	} else {
		s.ctxLog(ctx).Warn("emails disabled, reset password email not sent", zap.String("email", u.Email))
	}

	return &Message{Msg: "password recovery email sent"}, nil
}

// ResetPassword replaces the password of the account a reset token was issued for.
func (s *Service) ResetPassword(ctx context.Context, in ResetPasswordRequest) (*Message, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, formatValidationError(err)
	}

	email, err := s.tokens.VerifyPasswordResetToken(in.Token)
	if err != nil {
		return nil, pkgerrors.NewValidationError("token", "invalid token")
	}

	u, err := s.activeByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.NewPassword)
	if err != nil {
		return nil, pkgerrors.NewInternalError("failed to update password", err)
	}
	if _, err := s.repo.Update(ctx, u.ID, domain.Patch{HashedPassword: &hash}); err != nil {
		s.ctxLog(ctx).Error("failed to reset password", zap.String("id", u.ID.String()), zap.Error(err))
		return nil, err
	}

	s.ctxLog(ctx).Info("password reset", zap.String("id", u.ID.String()))
	return &Message{Msg: "password updated successfully"}, nil
}

// ValidateEmail marks the address behind an email-validation token as
// confirmed, ends onboarding and sets the chosen password.
func (s *Service) ValidateEmail(ctx context.Context, in ValidateEmailRequest) (*Message, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, formatValidationError(err)
	}

	email, err := s.tokens.VerifyEmailValidToken(in.Token)
	if err != nil {
		return nil, pkgerrors.NewValidationError("token", "invalid token")
	}

	u, err := s.activeByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, pkgerrors.NewInternalError("failed to update password", err)
	}
	validated, onboarding := true, false
	patch := domain.Patch{
		HashedPassword:    &hash,
		IsEmailValidation: &validated,
		IsOnboarding:      &onboarding,
	}
	if _, err := s.repo.Update(ctx, u.ID, patch); err != nil {
		s.ctxLog(ctx).Error("failed to validate email", zap.String("id", u.ID.String()), zap.Error(err))
		return nil, err
	}

	s.ctxLog(ctx).Info("email validated", zap.String("id", u.ID.String()))
	return &Message{Msg: "mail validated successfully"}, nil
}

func (s *Service) activeByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, pkgerrors.NewNotFoundError("user", "the user with this email does not exist in the system")
	}
	if !u.IsActive {
		return nil, pkgerrors.NewForbiddenError("inactive user")
	}
	return u, nil
}

// EnsureSuperuser creates an active superuser with the given credentials
// unless the email is already registered. It reports whether a user was created.
func (s *Service) EnsureSuperuser(ctx context.Context, email, password string) (bool, error) {
	email = domain.NormalizeEmail(email)
	existing, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}

	if _, err := s.insert(ctx, &domain.User{
		Email:             email,
		FullName:          domain.LocalPart(email),
		IsActive:          true,
		IsSuperuser:       true,
		IsEmailValidation: true,
	}, password); err != nil {
		var conflict *pkgerrors.ConflictError
		if errors.As(err, &conflict) {
			return false, nil
		}
		return false, err
	}

	s.ctxLog(ctx).Info("first superuser created", zap.String("email", email))
	return true, nil
}
