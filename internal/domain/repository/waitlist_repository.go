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

type WaitlistFilter struct {
	Status model.WaitlistStatus
	Limit  int
	Offset int
}

type WaitlistRepository interface {
	Create(ctx context.Context, entry *model.WaitlistEntry) error
	FindByID(ctx context.Context, id string) (*model.WaitlistEntry, error)
	FindByEmail(ctx context.Context, email string) (*model.WaitlistEntry, error)
	Update(ctx context.Context, entry *model.WaitlistEntry) error
	Delete(ctx context.Context, id string) error
	// List returns one page plus the total count of the filtered set. Pending
	// entries come first ordered by position, the rest by application date.
	List(ctx context.Context, filter WaitlistFilter) ([]model.WaitlistEntry, int, error)
	CountByStatus(ctx context.Context, status model.WaitlistStatus) (int, error)
	// RecomputePositions reassigns dense 1..N positions to the PENDING subset
	// ordered by application date. Must run after any insert, removal or
	// status change.
	RecomputePositions(ctx context.Context) error
}

type pgWaitlistRepository struct {
	db *sql.DB
}

func NewPgWaitlistRepository(db *sql.DB) WaitlistRepository {
	return &pgWaitlistRepository{db: db}
}

const waitlistColumns = `id, email, first_name, last_name, phone, status, application_date,
	queue_position, reason_for_joining, referred_by, created_at, updated_at`

func (r *pgWaitlistRepository) Create(ctx context.Context, e *model.WaitlistEntry) error {
	query := `INSERT INTO waitlist_entries
	          (id, email, first_name, last_name, phone, status, application_date,
	           queue_position, reason_for_joining, referred_by, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.Email, e.FirstName, e.LastName, e.Phone, e.Status, e.ApplicationDate,
		e.Position, e.ReasonForJoining, e.ReferredBy, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("waitlist entry with given email already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgWaitlistRepository.Create: %w", err)
	}
	return nil
}

func (r *pgWaitlistRepository) FindByID(ctx context.Context, id string) (*model.WaitlistEntry, error) {
	query := `SELECT ` + waitlistColumns + ` FROM waitlist_entries WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id), "FindByID")
}

func (r *pgWaitlistRepository) FindByEmail(ctx context.Context, email string) (*model.WaitlistEntry, error) {
	query := `SELECT ` + waitlistColumns + ` FROM waitlist_entries WHERE email = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, email), "FindByEmail")
}

func (r *pgWaitlistRepository) Update(ctx context.Context, e *model.WaitlistEntry) error {
	query := `UPDATE waitlist_entries SET
	          email = $2, first_name = $3, last_name = $4, phone = $5, status = $6,
	          queue_position = $7, reason_for_joining = $8, referred_by = $9, updated_at = $10
	          WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query,
		e.ID, e.Email, e.FirstName, e.LastName, e.Phone, e.Status,
		e.Position, e.ReasonForJoining, e.ReferredBy, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("pgWaitlistRepository.Update: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgWaitlistRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM waitlist_entries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pgWaitlistRepository.Delete: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgWaitlistRepository) List(ctx context.Context, filter WaitlistFilter) ([]model.WaitlistEntry, int, error) {
	where := ""
	args := []interface{}{}
	if filter.Status != "" {
		where = " WHERE status = $1"
		args = append(args, filter.Status)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM waitlist_entries`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgWaitlistRepository.List count: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM waitlist_entries%s
	          ORDER BY (status = 'pending') DESC, queue_position ASC, application_date ASC
	          LIMIT $%d OFFSET $%d`, waitlistColumns, where, len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgWaitlistRepository.List: %w", err)
	}
	defer rows.Close()

	entries := []model.WaitlistEntry{}
	for rows.Next() {
		e, err := scanWaitlistEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, *e)
	}
	return entries, total, rows.Err()
}

func (r *pgWaitlistRepository) CountByStatus(ctx context.Context, status model.WaitlistStatus) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM waitlist_entries WHERE status = $1`, status).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("pgWaitlistRepository.CountByStatus: %w", err)
	}
	return count, nil
}

func (r *pgWaitlistRepository) RecomputePositions(ctx context.Context) error {
	query := `UPDATE waitlist_entries w SET queue_position = ranked.rn
	          FROM (SELECT id, ROW_NUMBER() OVER (ORDER BY application_date ASC) AS rn
	                FROM waitlist_entries WHERE status = 'pending') ranked
	          WHERE w.id = ranked.id`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("pgWaitlistRepository.RecomputePositions: %w", err)
	}
	// Positions are meaningless outside the pending set.
	if _, err := r.db.ExecContext(ctx, `UPDATE waitlist_entries SET queue_position = 0 WHERE status <> 'pending' AND queue_position <> 0`); err != nil {
		return fmt.Errorf("pgWaitlistRepository.RecomputePositions reset: %w", err)
	}
	return nil
}

func (r *pgWaitlistRepository) scanOne(row *sql.Row, op string) (*model.WaitlistEntry, error) {
	e, err := scanWaitlistEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgWaitlistRepository.%s: %w", op, err)
	}
	return e, nil
}

func scanWaitlistEntry(row rowScanner) (*model.WaitlistEntry, error) {
	e := &model.WaitlistEntry{}
	var phone, reason, referredBy sql.NullString
	err := row.Scan(
		&e.ID, &e.Email, &e.FirstName, &e.LastName, &phone, &e.Status, &e.ApplicationDate,
		&e.Position, &reason, &referredBy, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.Phone = phone.String
	e.ReasonForJoining = reason.String
	e.ReferredBy = referredBy.String
	return e, nil
}
