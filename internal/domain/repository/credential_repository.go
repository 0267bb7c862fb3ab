package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"rangeclub/internal/common"
	"rangeclub/internal/domain/model"

	"github.com/jackc/pgx/v5/pgconn"
)

type CredentialRepository interface {
	Create(ctx context.Context, cred *model.Credential) error
	FindByEmail(ctx context.Context, email string) (*model.Credential, error)
	// Count is used at startup to decide whether to seed the bootstrap admin.
	Count(ctx context.Context) (int, error)
}

type pgCredentialRepository struct {
	db *sql.DB
}

func NewPgCredentialRepository(db *sql.DB) CredentialRepository {
	return &pgCredentialRepository{db: db}
}

func (r *pgCredentialRepository) Create(ctx context.Context, cred *model.Credential) error {
	query := `INSERT INTO credentials (id, email, password_hash, role, admin_role)
	          VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.ExecContext(ctx, query, cred.ID, cred.Email, cred.PasswordHash, cred.Role, cred.AdminRole)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("credential with given email already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgCredentialRepository.Create: %w", err)
	}
	return nil
}

func (r *pgCredentialRepository) FindByEmail(ctx context.Context, email string) (*model.Credential, error) {
	query := `SELECT id, email, password_hash, role, admin_role FROM credentials WHERE email = $1`
	cred := &model.Credential{}
	var adminRole sql.NullString
	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&cred.ID, &cred.Email, &cred.PasswordHash, &cred.Role, &adminRole,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgCredentialRepository.FindByEmail: %w", err)
	}
	cred.AdminRole = model.AdminRole(adminRole.String)
	return cred, nil
}

func (r *pgCredentialRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM credentials`).Scan(&count); err != nil {
		return 0, fmt.Errorf("pgCredentialRepository.Count: %w", err)
	}
	return count, nil
}
