package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"aquavision/internal/auth"
	"aquavision/internal/models"
	"aquavision/internal/store"
)

const defaultRole = "analyst"

type AuthService struct {
	operators store.Operators
	directory auth.Directory
	jwt       *auth.JWTManager
	ttl       time.Duration
	logr      *zap.Logger
}

func NewAuthService(ops store.Operators, dir auth.Directory, jwt *auth.JWTManager, ttl time.Duration, logr *zap.Logger) *AuthService {
	return &AuthService{operators: ops, directory: dir, jwt: jwt, ttl: ttl, logr: logr}
}

// HashPassword uses bcrypt
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(b), err
}

func ComparePassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// LoginLocal checks a bcrypt password and issues an access token.
func (s *AuthService) LoginLocal(ctx context.Context, email, password string) (*models.TokenResponse, error) {
	op, err := s.operators.ByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, store.ErrOperatorNotFound) {
		return nil, auth.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if op.PasswordHash == "" {
		return nil, fmt.Errorf("%w: account not configured for local login", auth.ErrInvalidCredentials)
	}
	if err := ComparePassword(op.PasswordHash, password); err != nil {
		return nil, auth.ErrInvalidCredentials
	}

	return s.issue(ctx, op, "local")
}

// LoginLDAP authenticates against the directory and provisions the operator
// on first login.
func (s *AuthService) LoginLDAP(ctx context.Context, username, password string) (*models.TokenResponse, error) {
	if s.directory == nil {
		return nil, fmt.Errorf("directory login is not configured")
	}
	entry, err := s.directory.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}

	op, err := s.operators.ByEmail(ctx, entry.Email)
	if errors.Is(err, store.ErrOperatorNotFound) {
		op = &models.Operator{
			Email:     entry.Email,
			Provider:  "ldap",
			Name:      entry.Name,
			Roles:     []string{defaultRole},
			CreatedAt: time.Now().UTC(),
		}
		if err := s.operators.Create(ctx, op); err != nil {
			s.logr.Error("failed to create operator", zap.Error(err), zap.String("email", entry.Email))
			return nil, err
		}
		s.logr.Info("created directory operator", zap.String("email", op.Email), zap.String("id", op.ID.String()))
	} else if err != nil {
		return nil, err
	}

	return s.issue(ctx, op, "ldap")
}

func (s *AuthService) issue(ctx context.Context, op *models.Operator, provider string) (*models.TokenResponse, error) {
	if err := s.operators.TouchLogin(ctx, op.ID, provider); err != nil {
		s.logr.Warn("failed to update last login", zap.Error(err), zap.String("operator_id", op.ID.String()))
	}

	token, exp, err := s.jwt.IssueAccessToken(op.ID.String(), provider, op.Roles, s.ttl)
	if err != nil {
		s.logr.Error("token generation failed", zap.Error(err), zap.String("operator_id", op.ID.String()))
		return nil, err
	}

	s.logr.Info("operator login", zap.String("operator_id", op.ID.String()), zap.String("provider", provider))
	return &models.TokenResponse{
		AccessToken: token,
		ExpiresAt:   exp,
		Operator: &models.OperatorInfo{
			ID:       op.ID.String(),
			Email:    op.Email,
			Name:     op.Name,
			Provider: provider,
			Roles:    op.Roles,
		},
	}, nil
}
