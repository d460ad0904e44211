package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidTokenType = errors.New("invalid token type")
)

const (
	TokenTypeAccess        = "access"
	TokenTypeEmailValid    = "email_valid"
	TokenTypePasswordReset = "password_reset"
)

// Claims carries the token type next to the registered claims so that a
// token minted for one purpose cannot be replayed for another.
type Claims struct {
	Type string `json:"type"`
	jwt.RegisteredClaims
}

// TokenConfig holds settings for TokenService.
type TokenConfig struct {
	Secret                string
	Issuer                string
	AccessTokenTTL        time.Duration
	EmailValidTokenTTL    time.Duration
	PasswordResetTokenTTL time.Duration
}

// TokenService signs and verifies HS256 tokens for login sessions, email
// validation and password reset.
type TokenService struct {
	secret []byte
	cfg    TokenConfig
	parser *jwt.Parser
}

// NewTokenService creates a TokenService from cfg.
func NewTokenService(cfg TokenConfig) *TokenService {
	if cfg.Issuer == "" {
		cfg.Issuer = "room-user-service"
	}
	if cfg.AccessTokenTTL <= 0 {
		cfg.AccessTokenTTL = 8 * 24 * time.Hour
	}
	if cfg.EmailValidTokenTTL <= 0 {
		cfg.EmailValidTokenTTL = 48 * time.Hour
	}
	if cfg.PasswordResetTokenTTL <= 0 {
		cfg.PasswordResetTokenTTL = 48 * time.Hour
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(cfg.Issuer),
	)

	return &TokenService{
		secret: []byte(cfg.Secret),
		cfg:    cfg,
		parser: parser,
	}
}

// NewAccessToken issues a login token whose subject is the user id.
func (s *TokenService) NewAccessToken(userID uuid.UUID) (string, error) {
	return s.sign(TokenTypeAccess, userID.String(), s.cfg.AccessTokenTTL)
}

// ParseAccessToken returns the user id carried by a valid access token.
func (s *TokenService) ParseAccessToken(token string) (uuid.UUID, error) {
	subject, err := s.verify(token, TokenTypeAccess)
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(subject)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return id, nil
}

// NewEmailValidToken issues a token proving control of email.
func (s *TokenService) NewEmailValidToken(email string) (string, error) {
	return s.sign(TokenTypeEmailValid, email, s.cfg.EmailValidTokenTTL)
}

// VerifyEmailValidToken returns the email carried by a valid email-validation token.
func (s *TokenService) VerifyEmailValidToken(token string) (string, error) {
	return s.verify(token, TokenTypeEmailValid)
}

// NewPasswordResetToken issues a password reset token for email.
func (s *TokenService) NewPasswordResetToken(email string) (string, error) {
	return s.sign(TokenTypePasswordReset, email, s.cfg.PasswordResetTokenTTL)
}

// VerifyPasswordResetToken returns the email carried by a valid reset token.
func (s *TokenService) VerifyPasswordResetToken(token string) (string, error) {
	return s.verify(token, TokenTypePasswordReset)
}

func (s *TokenService) sign(tokenType, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Type: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", tokenType, err)
	}
	return signed, nil
}

func (s *TokenService) verify(token, tokenType string) (string, error) {
	claims := &Claims{}
	_, err := s.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", ErrInvalidToken
	}
	if claims.Type != tokenType {
		return "", ErrInvalidTokenType
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
