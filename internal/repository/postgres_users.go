package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"kidneyguard-data/internal/domain"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PostgresUsersRepository 用户Repository实现（强类型版本）
type PostgresUsersRepository struct {
	db *sql.DB
}

func NewPostgresUsersRepository(db *sql.DB) *PostgresUsersRepository {
	return &PostgresUsersRepository{db: db}
}

var _ UsersRepository = (*PostgresUsersRepository)(nil)

const userColumns = `
	user_id::text,
	account,
	account_hash,
	password_hash,
	nickname,
	age_years,
	gender,
	medical_conditions,
	smoke_alcohol,
	vitals,
	status,
	created_at,
	last_login_at
`

func (r *PostgresUsersRepository) scanUser(row *sql.Row) (*domain.User, error) {
	var user domain.User
	var conditions pq.StringArray
	var vitals sql.NullString

	err := row.Scan(
		&user.UserID,
		&user.Account,
		&user.AccountHash,
		&user.PasswordHash,
		&user.Nickname,
		&user.AgeYears,
		&user.Gender,
		&conditions,
		&user.SmokeAlcohol,
		&vitals,
		&user.Status,
		&user.CreatedAt,
		&user.LastLoginAt,
	)
	if err != nil {
		return nil, err
	}
	user.MedicalConditions = []string(conditions)
	if vitals.Valid {
		user.Vitals = []byte(vitals.String)
	}
	return &user, nil
}

func (r *PostgresUsersRepository) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	if userID == "" {
		return nil, sql.ErrNoRows
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE user_id = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, userID))
}

func (r *PostgresUsersRepository) GetUserByAccount(ctx context.Context, account string) (*domain.User, error) {
	account = strings.TrimSpace(account)
	if account == "" {
		return nil, sql.ErrNoRows
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE account = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, account))
}

func (r *PostgresUsersRepository) CreateUser(ctx context.Context, u *domain.User) error {
	if u.UserID == "" {
		u.UserID = uuid.NewString()
	}
	if u.Status == "" {
		u.Status = "active"
	}

	var vitals any
	if len(u.Vitals) > 0 {
		vitals = string(u.Vitals)
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (user_id, account, account_hash, password_hash, nickname,
		                   age_years, gender, medical_conditions, smoke_alcohol, vitals,
		                   status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
	`, u.UserID, u.Account, u.AccountHash, u.PasswordHash, u.Nickname,
		u.AgeYears, u.Gender, pq.StringArray(u.MedicalConditions), u.SmokeAlcohol, vitals,
		u.Status)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrDuplicateAccount
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *PostgresUsersRepository) UpdateProfile(ctx context.Context, userID string, p domain.ProfileUpdate) error {
	sets := []string{}
	args := []any{}
	idx := 1

	if p.AgeYears != nil {
		sets = append(sets, fmt.Sprintf("age_years = $%d", idx))
		args = append(args, *p.AgeYears)
		idx++
	}
	if p.Gender != nil {
		sets = append(sets, fmt.Sprintf("gender = $%d", idx))
		args = append(args, strings.ToLower(*p.Gender))
		idx++
	}
	if p.MedicalConditions != nil {
		sets = append(sets, fmt.Sprintf("medical_conditions = $%d", idx))
		args = append(args, pq.StringArray(*p.MedicalConditions))
		idx++
	}
	if p.SmokeAlcohol != nil {
		sets = append(sets, fmt.Sprintf("smoke_alcohol = $%d", idx))
		args = append(args, *p.SmokeAlcohol)
		idx++
	}
	if len(sets) == 0 {
		return nil
	}

	args = append(args, userID)
	query := fmt.Sprintf(`UPDATE users SET %s WHERE user_id = $%d`, strings.Join(sets, ", "), idx)
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *PostgresUsersRepository) UpdateVitals(ctx context.Context, userID string, vitals []byte) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET vitals = $1 WHERE user_id = $2`,
		string(vitals), userID)
	if err != nil {
		return fmt.Errorf("failed to update vitals: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *PostgresUsersRepository) TouchLastLogin(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET last_login_at = NOW() WHERE user_id = $1`, userID)
	return err
}
