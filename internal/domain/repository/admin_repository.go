package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"rangeclub/internal/common"
	"rangeclub/internal/domain/model"

	"github.com/jackc/pgx/v5/pgconn"
)

type AdminRepository interface {
	Create(ctx context.Context, admin *model.AdminUser) error
	FindByID(ctx context.Context, id string) (*model.AdminUser, error)
}

type pgAdminRepository struct {
	db *sql.DB
}

func NewPgAdminRepository(db *sql.DB) AdminRepository {
	return &pgAdminRepository{db: db}
}

func (r *pgAdminRepository) Create(ctx context.Context, a *model.AdminUser) error {
	permissions, err := json.Marshal(a.Permissions)
	if err != nil {
		return fmt.Errorf("marshal admin permissions: %w", err)
	}
	query := `INSERT INTO admin_users
	          (id, email, first_name, last_name, role, admin_role, permissions, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err = r.db.ExecContext(ctx, query,
		a.ID, a.Email, a.FirstName, a.LastName, a.Role, a.AdminRole, permissions, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("admin with given email already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgAdminRepository.Create: %w", err)
	}
	return nil
}

func (r *pgAdminRepository) FindByID(ctx context.Context, id string) (*model.AdminUser, error) {
	query := `SELECT id, email, first_name, last_name, role, admin_role, permissions,
	          last_login, created_at, updated_at
	          FROM admin_users WHERE id = $1`
	a := &model.AdminUser{}
	var permissions []byte
	var lastLogin sql.NullTime
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&a.ID, &a.Email, &a.FirstName, &a.LastName, &a.Role, &a.AdminRole, &permissions,
		&lastLogin, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgAdminRepository.FindByID: %w", err)
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		a.LastLogin = &t
	}
	if len(permissions) > 0 {
		if err := json.Unmarshal(permissions, &a.Permissions); err != nil {
			return nil, fmt.Errorf("pgAdminRepository.FindByID permissions: %w", err)
		}
	}
	return a, nil
}
