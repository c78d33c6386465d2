package domain

import (
	"database/sql"
	"encoding/json"
	"time"
)

// User 用户领域模型（对应 users 表）
type User struct {
	// Primary key
	UserID string `db:"user_id"` // UUID

	// Login identity
	Account      string `db:"account"`       // VARCHAR(100), NOT NULL, UNIQUE
	AccountHash  []byte `db:"account_hash"`  // BYTEA, NOT NULL
	PasswordHash []byte `db:"password_hash"` // BYTEA, NOT NULL

	Nickname string `db:"nickname"` // VARCHAR(100)

	// Health profile used to build the similarity subject
	AgeYears          sql.NullInt64  `db:"age_years"`
	Gender            sql.NullString `db:"gender"`
	MedicalConditions []string       `db:"medical_conditions"` // TEXT[], condition names
	SmokeAlcohol      sql.NullString `db:"smoke_alcohol"`      // yes/no token

	// Optional nested vitals ({"egfr":..,"bmi":..}), filled from lab submissions
	Vitals json.RawMessage `db:"vitals"` // JSONB, nullable

	Status      string       `db:"status"` // active/disabled
	CreatedAt   time.Time    `db:"created_at"`
	LastLoginAt sql.NullTime `db:"last_login_at"`
}

// ProfileUpdate carries the editable profile fields; nil means "leave unchanged".
type ProfileUpdate struct {
	AgeYears          *int64
	Gender            *string
	MedicalConditions *[]string
	SmokeAlcohol      *string
}
