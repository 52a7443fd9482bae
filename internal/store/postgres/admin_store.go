package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/AnshRaj112/visitor-backend/internal/models"
	"github.com/AnshRaj112/visitor-backend/internal/store"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// uniqueViolation is the Postgres SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

type AdminStore struct {
	db *sql.DB
}

func NewAdminStore(db *sql.DB) *AdminStore {
	return &AdminStore{db: db}
}

func (s *AdminStore) FindByUsername(ctx context.Context, username string) (*models.Admin, error) {
	var a models.Admin
	err := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, updated_at, username, password_hash, is_active
		FROM admins
		WHERE LOWER(username) = LOWER($1)
	`, strings.TrimSpace(username)).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt, &a.Username, &a.PasswordHash, &a.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *AdminStore) Create(ctx context.Context, a *models.Admin) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO admins (id, created_at, updated_at, username, password_hash, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, a.ID, a.CreatedAt, a.UpdatedAt, a.Username, a.PasswordHash, a.IsActive)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return store.ErrDuplicate
	}
	return err
}
