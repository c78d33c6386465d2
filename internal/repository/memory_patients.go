package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"kidneyguard-data/internal/domain"

	"github.com/google/uuid"
)

// MemoryPatientsRepository: in-memory fallback used when the DB is not
// available (local dev, handler tests). Same contract as the Postgres repo.
type MemoryPatientsRepository struct {
	mu      sync.RWMutex
	records map[string]*domain.PatientRecord // patientID -> record
	byUser  map[string]string                // userID -> patientID
}

func NewMemoryPatientsRepository() *MemoryPatientsRepository {
	return &MemoryPatientsRepository{
		records: map[string]*domain.PatientRecord{},
		byUser:  map[string]string{},
	}
}

var _ PatientsRepository = (*MemoryPatientsRepository)(nil)

func (r *MemoryPatientsRepository) ListDocuments(ctx context.Context, f PatientFilter) ([]map[string]any, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.records))
	for id := range r.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var docs []map[string]any
	for _, id := range ids {
		rec := r.records[id]
		if f.ExcludeSmokers && rec.Smokes != nil && *rec.Smokes {
			continue
		}
		doc := map[string]any{}
		if err := json.Unmarshal(rec.Doc, &doc); err != nil {
			doc = map[string]any{}
		}
		if _, ok := doc["id"]; !ok {
			doc["id"] = rec.PatientID
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (r *MemoryPatientsRepository) GetByUser(ctx context.Context, userID string) (map[string]any, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	patientID, ok := r.byUser[userID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	rec := r.records[patientID]
	doc := map[string]any{}
	if err := json.Unmarshal(rec.Doc, &doc); err != nil {
		return nil, err
	}
	if _, ok := doc["id"]; !ok {
		doc["id"] = rec.PatientID
	}
	return doc, nil
}

func (r *MemoryPatientsRepository) UpsertForUser(ctx context.Context, rec *domain.PatientRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byUser[rec.UserID]; ok {
		rec.PatientID = existing
	} else if rec.PatientID == "" {
		rec.PatientID = uuid.NewString()
	}
	rec.Source = "form"
	rec.UpdatedAt = time.Now()
	r.records[rec.PatientID] = rec
	r.byUser[rec.UserID] = rec.PatientID
	return nil
}

func (r *MemoryPatientsRepository) BulkInsert(ctx context.Context, recs []*domain.PatientRecord) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	inserted := 0
	for _, rec := range recs {
		if rec.PatientID == "" {
			rec.PatientID = uuid.NewString()
		}
		if _, exists := r.records[rec.PatientID]; exists {
			continue
		}
		if rec.Source == "" {
			rec.Source = "dataset"
		}
		rec.CreatedAt = time.Now()
		r.records[rec.PatientID] = rec
		inserted++
	}
	return inserted, nil
}
