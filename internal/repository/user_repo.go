package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fieldops/internal/model"

	"github.com/jackc/pgx/v5"
)

// Unique constraint names created by the initial migration.
const (
	ConstraintUsername = "users_username_key"
	ConstraintEmail    = "users_email_key"
)

// UserRepository defines operations for user data
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id int64) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	UpdateProfile(ctx context.Context, id int64, upd model.ProfileUpdate) (*model.User, error)
	SetApproval(ctx context.Context, workerID int64, approved bool) (*model.User, error)
	SetActive(ctx context.Context, id int64, active bool) (*model.User, error)
	List(ctx context.Context, filters model.UserFilters, limit, offset int) ([]model.User, int64, error)
	Counts(ctx context.Context) (*model.UserCounts, error)
}

type userRepository struct {
	db DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db DB) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, username, email, hashed_password, role, is_active, is_approved, phone, address, created_at`

func scanUser(row pgx.Row) (*model.User, error) {
	u := &model.User{}
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role,
		&u.IsActive, &u.IsApproved, &u.Phone, &u.Address, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// findOne runs a single-row user query; not found is (nil, nil).
func (r *userRepository) findOne(ctx context.Context, op, sql string, args ...any) (*model.User, error) {
	u, err := scanUser(conn(ctx, r.db).QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, classify(op, err)
	}
	return u, nil
}

// Create inserts a new user into the database
func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	sql := `INSERT INTO users (username, email, hashed_password, role, is_active, is_approved, phone, address)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id, created_at`
	err := conn(ctx, r.db).QueryRow(ctx, sql, user.Username, user.Email, user.PasswordHash, user.Role,
		user.IsActive, user.IsApproved, user.Phone, user.Address).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		return classify("failed to create user", err)
	}
	return nil
}

// FindByID retrieves a user by their ID
func (r *userRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	return r.findOne(ctx, "failed to find user by ID",
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// FindByUsername retrieves a user by their username
func (r *userRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.findOne(ctx, "failed to find user by username",
		`SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

// UpdateProfile rewrites the self-editable profile fields. The password
// hash and phone/address are only replaced when provided; an empty phone or
// address clears the stored value.
func (r *userRepository) UpdateProfile(ctx context.Context, id int64, upd model.ProfileUpdate) (*model.User, error) {
	sql := `UPDATE users
            SET username = $1,
                email = $2,
                hashed_password = COALESCE($3, hashed_password),
                phone = CASE WHEN $4::text IS NULL THEN phone ELSE NULLIF($4::text, '') END,
                address = CASE WHEN $5::text IS NULL THEN address ELSE NULLIF($5::text, '') END,
                is_approved = CASE WHEN $6 THEN FALSE ELSE is_approved END
            WHERE id = $7
            RETURNING ` + userColumns
	return r.findOne(ctx, "failed to update user profile", sql,
		upd.Username, upd.Email, upd.PasswordHash, upd.Phone, upd.Address, upd.ResetApproval, id)
}

// SetApproval approves or rejects a field worker. Other roles are not found.
func (r *userRepository) SetApproval(ctx context.Context, workerID int64, approved bool) (*model.User, error) {
	sql := `UPDATE users SET is_approved = $1 WHERE id = $2 AND role = $3 RETURNING ` + userColumns
	return r.findOne(ctx, "failed to update approval status", sql, approved, workerID, model.RoleFieldWorker)
}

// SetActive activates or deactivates any account
func (r *userRepository) SetActive(ctx context.Context, id int64, active bool) (*model.User, error) {
	sql := `UPDATE users SET is_active = $1 WHERE id = $2 RETURNING ` + userColumns
	return r.findOne(ctx, "failed to update active flag", sql, active, id)
}

// List returns a page of users matching filters and the total match count
func (r *userRepository) List(ctx context.Context, filters model.UserFilters, limit, offset int) ([]model.User, int64, error) {
	var conditions []string
	args := []any{}
	argCount := 1

	if filters.Role != nil {
		conditions = append(conditions, fmt.Sprintf("role = $%d", argCount))
		args = append(args, *filters.Role)
		argCount++
	}
	if filters.PendingApproval {
		conditions = append(conditions, fmt.Sprintf("role = $%d AND is_approved = FALSE", argCount))
		args = append(args, model.RoleFieldWorker)
		argCount++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	db := conn(ctx, r.db)
	var total int64
	if err := db.QueryRow(ctx, `SELECT COUNT(*) FROM users`+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, classify("failed to count users", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM users%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		userColumns, whereClause, argCount, argCount+1)
	rows, err := db.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, classify("failed to query users", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, classify("error iterating user rows", err)
	}
	return users, total, nil
}

// Counts computes the user side of the admin dashboard in one statement
func (r *userRepository) Counts(ctx context.Context) (*model.UserCounts, error) {
	sql := `SELECT
                COUNT(*),
                COUNT(*) FILTER (WHERE role = 'FIELD_WORKER' AND is_active AND is_approved),
                COUNT(*) FILTER (WHERE role = 'FIELD_WORKER' AND NOT is_approved)
            FROM users`
	c := &model.UserCounts{}
	if err := conn(ctx, r.db).QueryRow(ctx, sql).Scan(&c.TotalUsers, &c.ActiveFieldWorkers, &c.PendingApprovals); err != nil {
		return nil, classify("failed to count users", err)
	}
	return c, nil
}
