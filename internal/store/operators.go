package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"aquavision/internal/models"
)

var ErrOperatorNotFound = errors.New("operator not found")

type Operators interface {
	ByEmail(ctx context.Context, email string) (*models.Operator, error)
	Create(ctx context.Context, op *models.Operator) error
	TouchLogin(ctx context.Context, id uuid.UUID, provider string) error
}

type OperatorStore struct {
	db *bun.DB
}

func NewOperatorStore(db *bun.DB) *OperatorStore {
	return &OperatorStore{db: db}
}

func (s *OperatorStore) ByEmail(ctx context.Context, email string) (*models.Operator, error) {
	var op models.Operator
	err := s.db.NewSelect().Model(&op).Where("LOWER(email) = LOWER(?)", email).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOperatorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find operator: %w", err)
	}
	return &op, nil
}

func (s *OperatorStore) Create(ctx context.Context, op *models.Operator) error {
	if op.ID == uuid.Nil {
		op.ID = uuid.New()
	}
	if _, err := s.db.NewInsert().Model(op).Returning("*").Exec(ctx); err != nil {
		return fmt.Errorf("create operator: %w", err)
	}
	return nil
}

func (s *OperatorStore) TouchLogin(ctx context.Context, id uuid.UUID, provider string) error {
	now := time.Now().UTC()
	_, err := s.db.NewUpdate().
		Model((*models.Operator)(nil)).
		Set("last_login_at = ?", now).
		Set("provider = ?", provider).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}
