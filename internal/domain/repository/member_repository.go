package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"rangeclub/internal/common"
	"rangeclub/internal/domain/model"

	"github.com/jackc/pgx/v5/pgconn"
)

// MemberFilter narrows and pages a member listing. Sort accepts a whitelisted
// field name, optionally prefixed with "-" for descending order.
type MemberFilter struct {
	Status model.MemberStatus
	Limit  int
	Offset int
	Sort   string
}

type MemberRepository interface {
	Create(ctx context.Context, member *model.Member) error
	FindByID(ctx context.Context, id string) (*model.Member, error)
	FindByEmail(ctx context.Context, email string) (*model.Member, error)
	Update(ctx context.Context, member *model.Member) error
	Delete(ctx context.Context, id string) error
	// List returns one page plus the total count of the filtered set.
	List(ctx context.Context, filter MemberFilter) ([]model.Member, int, error)
	CountByStatus(ctx context.Context, status model.MemberStatus) (int, error)
}

var memberSortColumns = map[string]string{
	"memberSince": "member_since",
	"lastName":    "last_name",
	"email":       "email",
	"createdAt":   "created_at",
}

type pgMemberRepository struct {
	db *sql.DB
}

func NewPgMemberRepository(db *sql.DB) MemberRepository {
	return &pgMemberRepository{db: db}
}

func (r *pgMemberRepository) Create(ctx context.Context, m *model.Member) error {
	address, preferences, err := marshalMemberJSON(m)
	if err != nil {
		return err
	}
	query := `INSERT INTO members
	          (id, email, first_name, last_name, phone, status, member_since, membership_id,
	           profile_picture, bio, address, preferences, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err = r.db.ExecContext(ctx, query,
		m.ID, m.Email, m.FirstName, m.LastName, m.Phone, m.Status, m.MemberSince, m.MembershipID,
		m.ProfilePicture, m.Bio, address, preferences, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // Unique constraint violation
			return fmt.Errorf("member with given email already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgMemberRepository.Create: %w", err)
	}
	return nil
}

const memberColumns = `id, email, first_name, last_name, phone, status, member_since, membership_id,
	profile_picture, bio, address, preferences, last_login, created_at, updated_at`

func (r *pgMemberRepository) FindByID(ctx context.Context, id string) (*model.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id), "FindByID")
}

func (r *pgMemberRepository) FindByEmail(ctx context.Context, email string) (*model.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE email = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, email), "FindByEmail")
}

func (r *pgMemberRepository) Update(ctx context.Context, m *model.Member) error {
	address, preferences, err := marshalMemberJSON(m)
	if err != nil {
		return err
	}
	query := `UPDATE members SET
	          email = $2, first_name = $3, last_name = $4, phone = $5, status = $6,
	          profile_picture = $7, bio = $8, address = $9, preferences = $10,
	          last_login = $11, updated_at = $12
	          WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query,
		m.ID, m.Email, m.FirstName, m.LastName, m.Phone, m.Status,
		m.ProfilePicture, m.Bio, address, preferences, m.LastLogin, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("pgMemberRepository.Update: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgMemberRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM members WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pgMemberRepository.Delete: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgMemberRepository) List(ctx context.Context, filter MemberFilter) ([]model.Member, int, error) {
	where := ""
	args := []interface{}{}
	if filter.Status != "" {
		where = " WHERE status = $1"
		args = append(args, filter.Status)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM members`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgMemberRepository.List count: %w", err)
	}

	orderBy := "created_at ASC"
	if filter.Sort != "" {
		field := strings.TrimPrefix(filter.Sort, "-")
		if col, ok := memberSortColumns[field]; ok {
			orderBy = col + " ASC"
			if strings.HasPrefix(filter.Sort, "-") {
				orderBy = col + " DESC"
			}
		}
	}

	query := fmt.Sprintf(`SELECT %s FROM members%s ORDER BY %s LIMIT $%d OFFSET $%d`,
		memberColumns, where, orderBy, len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgMemberRepository.List: %w", err)
	}
	defer rows.Close()

	members := []model.Member{}
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, 0, err
		}
		members = append(members, *m)
	}
	return members, total, rows.Err()
}

func (r *pgMemberRepository) CountByStatus(ctx context.Context, status model.MemberStatus) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM members WHERE status = $1`, status).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("pgMemberRepository.CountByStatus: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *pgMemberRepository) scanOne(row *sql.Row, op string) (*model.Member, error) {
	m, err := scanMember(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgMemberRepository.%s: %w", op, err)
	}
	return m, nil
}

func scanMember(row rowScanner) (*model.Member, error) {
	m := &model.Member{}
	var phone, picture, bio sql.NullString
	var address, preferences []byte
	var lastLogin sql.NullTime
	err := row.Scan(
		&m.ID, &m.Email, &m.FirstName, &m.LastName, &phone, &m.Status, &m.MemberSince, &m.MembershipID,
		&picture, &bio, &address, &preferences, &lastLogin, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.Phone = phone.String
	m.ProfilePicture = picture.String
	m.Bio = bio.String
	if lastLogin.Valid {
		t := lastLogin.Time
		m.LastLogin = &t
	}
	if len(address) > 0 {
		m.Address = &model.Address{}
		if err := json.Unmarshal(address, m.Address); err != nil {
			return nil, fmt.Errorf("scanMember address: %w", err)
		}
	}
	if len(preferences) > 0 {
		m.Preferences = &model.Preferences{}
		if err := json.Unmarshal(preferences, m.Preferences); err != nil {
			return nil, fmt.Errorf("scanMember preferences: %w", err)
		}
	}
	return m, nil
}

func marshalMemberJSON(m *model.Member) ([]byte, []byte, error) {
	var address, preferences []byte
	var err error
	if m.Address != nil {
		if address, err = json.Marshal(m.Address); err != nil {
			return nil, nil, fmt.Errorf("marshal member address: %w", err)
		}
	}
	if m.Preferences != nil {
		if preferences, err = json.Marshal(m.Preferences); err != nil {
			return nil, nil, fmt.Errorf("marshal member preferences: %w", err)
		}
	}
	return address, preferences, nil
}
