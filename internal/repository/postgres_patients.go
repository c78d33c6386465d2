package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"kidneyguard-data/internal/domain"

	"github.com/google/uuid"
)

// PostgresPatientsRepository 患者Repository实现
type PostgresPatientsRepository struct {
	db *sql.DB
}

func NewPostgresPatientsRepository(db *sql.DB) *PostgresPatientsRepository {
	return &PostgresPatientsRepository{db: db}
}

var _ PatientsRepository = (*PostgresPatientsRepository)(nil)

func (r *PostgresPatientsRepository) ListDocuments(ctx context.Context, f PatientFilter) ([]map[string]any, error) {
	query := `
		SELECT patient_id::text, doc
		FROM patients
	`
	if f.ExcludeSmokers {
		query += ` WHERE COALESCE(smokes, false) = false`
	}
	query += ` ORDER BY patient_id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	defer rows.Close()

	var docs []map[string]any
	for rows.Next() {
		var patientID string
		var raw []byte
		if err := rows.Scan(&patientID, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan patient row: %w", err)
		}
		doc := map[string]any{}
		if err := json.Unmarshal(raw, &doc); err != nil {
			// one bad document must not fail the whole pool
			doc = map[string]any{}
		}
		if _, ok := doc["id"]; !ok {
			doc["id"] = patientID
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (r *PostgresPatientsRepository) GetByUser(ctx context.Context, userID string) (map[string]any, error) {
	if userID == "" {
		return nil, sql.ErrNoRows
	}

	var patientID string
	var raw []byte
	err := r.db.QueryRowContext(ctx, `
		SELECT patient_id::text, doc
		FROM patients
		WHERE user_id = $1
	`, userID).Scan(&patientID, &raw)
	if err != nil {
		return nil, err
	}

	doc := map[string]any{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode patient doc: %w", err)
	}
	if _, ok := doc["id"]; !ok {
		doc["id"] = patientID
	}
	return doc, nil
}

func (r *PostgresPatientsRepository) UpsertForUser(ctx context.Context, rec *domain.PatientRecord) error {
	if rec.UserID == "" {
		return fmt.Errorf("upsert for user requires user_id")
	}
	if rec.PatientID == "" {
		rec.PatientID = uuid.NewString()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO patients (patient_id, user_id, source, doc, egfr, smokes, created_at, updated_at)
		VALUES ($1, $2, 'form', $3, $4, $5, NOW(), NOW())
		ON CONFLICT (user_id)
		DO UPDATE SET doc = EXCLUDED.doc,
		              egfr = EXCLUDED.egfr,
		              smokes = EXCLUDED.smokes,
		              updated_at = NOW()
	`, rec.PatientID, rec.UserID, rec.Doc, nullFloat(rec.EGFR), nullBool(rec.Smokes))
	if err != nil {
		return fmt.Errorf("failed to upsert patient record: %w", err)
	}
	return nil
}

func (r *PostgresPatientsRepository) BulkInsert(ctx context.Context, recs []*domain.PatientRecord) (int, error) {
	if len(recs) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO patients (patient_id, source, doc, egfr, smokes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (patient_id) DO NOTHING
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	inserted := 0
	for _, rec := range recs {
		if rec.PatientID == "" {
			rec.PatientID = uuid.NewString()
		}
		source := rec.Source
		if source == "" {
			source = "dataset"
		}
		res, err := stmt.ExecContext(ctx, rec.PatientID, source, rec.Doc,
			nullFloat(rec.EGFR), nullBool(rec.Smokes), now)
		if err != nil {
			return inserted, fmt.Errorf("failed to insert patient %s: %w", rec.PatientID, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return inserted, fmt.Errorf("failed to commit: %w", err)
	}
	return inserted, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullBool(v *bool) sql.NullBool {
	if v == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *v, Valid: true}
}
