package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/eventlink-tickets/internal/booking"
	"github.com/iliyamo/eventlink-tickets/internal/model"
	"github.com/iliyamo/eventlink-tickets/internal/utils"
)

type AdminRepo struct{ DB *sqlx.DB }

func NewAdminRepo(db *sqlx.DB) *AdminRepo { return &AdminRepo{DB: db} }

// Create inserts an administrator and returns its ID.
func (r *AdminRepo) Create(ctx context.Context, email, password, role string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO admins (email, password_hash, role) VALUES (?,?,?)",
		email, hash, role)
	if err != nil {
		if isDuplicateEntry(err) {
			return 0, ErrEmailExists
		}
		return 0, fmt.Errorf("could not create admin: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches an administrator by normalized email.
func (r *AdminRepo) GetByEmail(ctx context.Context, email string) (model.Admin, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var a model.Admin
	err := r.DB.GetContext(ctx, &a,
		"SELECT id,email,password_hash,role,is_active,created_at FROM admins WHERE email=? LIMIT 1", email)
	if errors.Is(err, sql.ErrNoRows) {
		return a, booking.ErrNotFound
	}
	return a, err
}

// GetByID fetches an administrator by id.
func (r *AdminRepo) GetByID(ctx context.Context, id uint64) (model.Admin, error) {
	var a model.Admin
	err := r.DB.GetContext(ctx, &a,
		"SELECT id,email,password_hash,role,is_active,created_at FROM admins WHERE id=? LIMIT 1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return a, booking.ErrNotFound
	}
	return a, err
}
