package repository

import (
	"context"
	"errors"

	"kidneyguard-data/internal/domain"
)

// ErrDuplicateAccount is returned by CreateUser when the account name is taken.
var ErrDuplicateAccount = errors.New("account already exists")

// PatientFilter narrows the candidate pool before scoring. The zero value
// matches every record.
type PatientFilter struct {
	// ExcludeSmokers drops records whose extracted smokes flag is true.
	// Records with an unknown flag are kept.
	ExcludeSmokers bool
}

// PatientsRepository 患者文档仓库
type PatientsRepository interface {
	// ListDocuments returns the source documents of every record matching
	// the filter, with the record id injected under "id" when the document
	// carries none of its own.
	ListDocuments(ctx context.Context, f PatientFilter) ([]map[string]any, error)

	// GetByUser returns the form-submitted document owned by a user, or
	// sql.ErrNoRows when the user has none.
	GetByUser(ctx context.Context, userID string) (map[string]any, error)

	// UpsertForUser stores a user's lab-form record, replacing any previous one.
	UpsertForUser(ctx context.Context, rec *domain.PatientRecord) error

	// BulkInsert loads dataset rows; returns the number inserted.
	BulkInsert(ctx context.Context, recs []*domain.PatientRecord) (int, error)
}

// UsersRepository 用户仓库
type UsersRepository interface {
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	GetUserByAccount(ctx context.Context, account string) (*domain.User, error)
	CreateUser(ctx context.Context, u *domain.User) error
	UpdateProfile(ctx context.Context, userID string, p domain.ProfileUpdate) error
	UpdateVitals(ctx context.Context, userID string, vitals []byte) error
	TouchLastLogin(ctx context.Context, userID string) error
}

// ContentRepository 教育内容仓库
type ContentRepository interface {
	ListModules(ctx context.Context) ([]*domain.ContentModule, error)
	GetModule(ctx context.Context, slug string) (*domain.ContentModule, error)
}
