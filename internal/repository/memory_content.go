package repository

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"kidneyguard-data/internal/domain"

	"github.com/google/uuid"
)

// MemoryContentRepository: in-memory fallback seeded with a minimal set of
// education modules so the front end has something to render without a DB.
type MemoryContentRepository struct {
	mu      sync.RWMutex
	modules map[string]*domain.ContentModule // slug -> module
}

func NewMemoryContentRepository() *MemoryContentRepository {
	r := &MemoryContentRepository{modules: map[string]*domain.ContentModule{}}
	for _, m := range seedModules() {
		r.modules[m.Slug] = m
	}
	return r
}

var _ ContentRepository = (*MemoryContentRepository)(nil)

func (r *MemoryContentRepository) ListModules(ctx context.Context) ([]*domain.ContentModule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	modules := make([]*domain.ContentModule, 0, len(r.modules))
	for _, m := range r.modules {
		clone := *m
		modules = append(modules, &clone)
	}
	sort.Slice(modules, func(i, j int) bool {
		if modules[i].SortOrder != modules[j].SortOrder {
			return modules[i].SortOrder < modules[j].SortOrder
		}
		return modules[i].Slug < modules[j].Slug
	})
	return modules, nil
}

func (r *MemoryContentRepository) GetModule(ctx context.Context, slug string) (*domain.ContentModule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.modules[slug]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *m
	return &clone, nil
}

func seedModules() []*domain.ContentModule {
	now := time.Now()
	return []*domain.ContentModule{
		{
			ModuleID:  uuid.NewString(),
			Slug:      "what-your-kidneys-do",
			Title:     "What Your Kidneys Do",
			Topic:     "basics",
			Summary:   "How kidneys filter blood and why eGFR matters.",
			Body:      "Your kidneys filter about 150 liters of blood every day...",
			SortOrder: 1,
			UpdatedAt: now,
		},
		{
			ModuleID:  uuid.NewString(),
			Slug:      "understanding-ckd-stages",
			Title:     "Understanding CKD Stages",
			Topic:     "basics",
			Summary:   "The five CKD stages and the eGFR thresholds behind them.",
			Body:      "Chronic kidney disease is staged by eGFR: Stage 1 at 90 and above...",
			SortOrder: 2,
			UpdatedAt: now,
		},
		{
			ModuleID:  uuid.NewString(),
			Slug:      "kidney-friendly-diet",
			Title:     "Eating for Kidney Health",
			Topic:     "diet",
			Summary:   "Sodium, potassium and protein choices that protect kidney function.",
			Body:      "A kidney-friendly plate keeps sodium under 2,300 mg a day...",
			SortOrder: 3,
			UpdatedAt: now,
		},
	}
}
