package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"blood-donation/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateProfile(ctx context.Context, user *domain.User) error
	SetStatus(ctx context.Context, userID uuid.UUID, status domain.UserStatus) error
	AssignRole(ctx context.Context, userID uuid.UUID, role domain.Role) error
	SearchDonors(ctx context.Context, fields map[string]string, params domain.PaginationParams) ([]domain.DonorProfile, int64, error)
	CountActiveDonors(ctx context.Context) (int64, error)
}

type userRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, email, full_name, avatar_url, role, status, blood_group, division, district, upazila)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`

	return r.db.QueryRowxContext(ctx, query,
		user.ID, user.Email, user.FullName, user.AvatarURL, user.Role, user.Status,
		user.BloodGroup, user.Division, user.District, user.Upazila,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var user domain.User
	query := `SELECT * FROM users WHERE id = $1`

	err := r.db.GetContext(ctx, &user, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	query := `SELECT * FROM users WHERE email = $1`

	err := r.db.GetContext(ctx, &user, query, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, user *domain.User) error {
	query := `
		UPDATE users
		SET full_name = :full_name, avatar_url = :avatar_url, blood_group = :blood_group,
			division = :division, district = :district, upazila = :upazila, updated_at = NOW()
		WHERE id = :id`

	_, err := r.db.NamedExecContext(ctx, query, user)
	return err
}

func (r *userRepository) SetStatus(ctx context.Context, userID uuid.UUID, status domain.UserStatus) error {
	query := `UPDATE users SET status = $2, updated_at = NOW() WHERE id = $1`
	return expectOneRow(r.db.ExecContext(ctx, query, userID, status))
}

func (r *userRepository) AssignRole(ctx context.Context, userID uuid.UUID, role domain.Role) error {
	query := `UPDATE users SET role = $2, updated_at = NOW() WHERE id = $1`
	return expectOneRow(r.db.ExecContext(ctx, query, userID, role))
}

var donorFilterColumns = map[string]string{
	"blood_group": "blood_group",
	"division":    "division",
	"district":    "district",
	"upazila":     "upazila",
}

// SearchDonors matches active users on every supplied field; absent fields
// add no condition.
func (r *userRepository) SearchDonors(ctx context.Context, fields map[string]string, params domain.PaginationParams) ([]domain.DonorProfile, int64, error) {
	params.Validate()

	conditions := []string{"status = $1"}
	args := []interface{}{domain.UserActive}
	for _, key := range []string{"blood_group", "division", "district", "upazila"} {
		value, ok := fields[key]
		if !ok {
			continue
		}
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", donorFilterColumns[key], len(args)))
	}
	where := strings.Join(conditions, " AND ")

	var total int64
	countQuery := `SELECT COUNT(*) FROM users WHERE ` + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT id, full_name, email, avatar_url, blood_group, division, district, upazila
		FROM users
		WHERE %s
		ORDER BY full_name ASC
		LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)

	donors := []domain.DonorProfile{}
	err := r.db.SelectContext(ctx, &donors, query, append(args, params.Limit, params.Offset())...)
	return donors, total, err
}

func (r *userRepository) CountActiveDonors(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM users WHERE status = $1`, domain.UserActive)
	return count, err
}

func expectOneRow(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
