package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"math"
	"sort"
	"strings"

	"kidneyguard-data/internal/domain"
	"kidneyguard-data/internal/repository"
	"kidneyguard-data/internal/similarity"
	"kidneyguard-data/internal/store"

	"go.uber.org/zap"
)

const (
	minResultLimit = 1
	maxResultLimit = 12

	// ckdMismatchPenalty is a flat deduction applied when a subject without
	// kidney impairment is scored against an impaired candidate. A tunable
	// heuristic on top of the Gower score, not part of the weighted model.
	ckdMismatchPenalty = 0.25

	impairmentEGFRThreshold = 60
)

// SimilarRequest is one cohort-matching query: either UserID or Profile must
// be set. Limit is clamped to [1,12]; defaulting an omitted limit is the
// transport layer's concern.
type SimilarRequest struct {
	UserID  string
	Profile map[string]any
	Limit   int
}

// SimilarResponse carries the ranked cards plus the reproducibility signature.
type SimilarResponse struct {
	Results   []similarity.Card `json:"results"`
	Signature string            `json:"signature"`
}

// SimilarService resolves a subject, builds and scores a candidate pool, and
// ranks the closest patient stories.
type SimilarService struct {
	patients repository.PatientsRepository
	users    repository.UsersRepository
	cache    store.SimilarityCache // nil disables caching
	features []similarity.Feature
	logger   *zap.Logger
}

func NewSimilarService(
	patients repository.PatientsRepository,
	users repository.UsersRepository,
	cache store.SimilarityCache,
	logger *zap.Logger,
) *SimilarService {
	return &SimilarService{
		patients: patients,
		users:    users,
		cache:    cache,
		features: similarity.DefaultFeatures(),
		logger:   logger,
	}
}

type scoredCandidate struct {
	profile similarity.Profile
	score   float64
}

// FindSimilar runs the full ranking pipeline for one request.
func (s *SimilarService) FindSimilar(ctx context.Context, req SimilarRequest) (*SimilarResponse, error) {
	subject, subjectKey, err := s.resolveSubject(ctx, req)
	if err != nil {
		return nil, err
	}

	limit := req.Limit
	if limit < minResultLimit {
		limit = minResultLimit
	}
	if limit > maxResultLimit {
		limit = maxResultLimit
	}

	docs, lerr := s.loadCandidatePool(ctx, subject)
	if lerr != nil {
		return nil, lerr
	}
	if len(docs) == 0 {
		return &SimilarResponse{
			Results:   []similarity.Card{},
			Signature: similarity.EmptyPoolSignature,
		}, nil
	}

	// Normalize candidates and render their scoring documents once;
	// the range pass and the scoring pass both read them.
	profiles := make([]similarity.Profile, 0, len(docs))
	candidateDocs := make([]map[string]any, 0, len(docs))
	for i, doc := range docs {
		p := similarity.Normalize(doc, i)
		if p.ID == subject.ID {
			continue // never match the subject against their own record
		}
		profiles = append(profiles, p)
		candidateDocs = append(candidateDocs, p.Doc())
	}
	if len(profiles) == 0 {
		return &SimilarResponse{
			Results:   []similarity.Card{},
			Signature: similarity.EmptyPoolSignature,
		}, nil
	}

	features := similarity.ResolveRanges(candidateDocs, s.features)
	subjectDoc := subject.Doc()

	scored := make([]scoredCandidate, len(profiles))
	for i := range profiles {
		score := similarity.Gower(subjectDoc, candidateDocs[i], features)
		score = applyMismatchPenalty(score, subject.EGFR, profiles[i].EGFR)
		scored[i] = scoredCandidate{profile: profiles[i], score: score}
	}

	// Descending by score, ascending id for equal scores: reproducible order.
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].profile.ID < scored[j].profile.ID
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}

	cards := make([]similarity.Card, len(scored))
	for i, sc := range scored {
		cards[i] = sc.profile.Card(int(math.Round(sc.score * 100)))
	}

	resp := &SimilarResponse{
		Results:   cards,
		Signature: similarity.Signature(subjectDoc, features, limit),
	}

	// Best-effort memoization: a failed write is logged, never surfaced.
	if s.cache != nil {
		if cerr := s.cache.PutRanking(ctx, subjectKey, resp.Signature, resp); cerr != nil {
			s.logger.Warn("similarity cache write failed",
				zap.String("subject_key", subjectKey),
				zap.Error(cerr))
		}
	}

	return resp, nil
}

// FindSimilarBreakdown scores one candidate against the resolved subject with
// full per-feature detail. Diagnostics endpoint support.
func (s *SimilarService) FindSimilarBreakdown(ctx context.Context, req SimilarRequest, candidate map[string]any) (float64, []similarity.FeatureScore, error) {
	subject, _, err := s.resolveSubject(ctx, req)
	if err != nil {
		return 0, nil, err
	}
	cand := similarity.Normalize(candidate, 0)
	score, rows := similarity.GowerBreakdown(subject.Doc(), cand.Doc(), s.features)
	return score, rows, nil
}

func (s *SimilarService) resolveSubject(ctx context.Context, req SimilarRequest) (similarity.Profile, string, error) {
	if req.Profile != nil {
		subject := similarity.Normalize(req.Profile, 0)
		key := subject.ID
		if key == "" {
			key = "anon"
		}
		return subject, key, nil
	}

	if req.UserID == "" {
		return similarity.Profile{}, "", badRequest("either userId or profile is required")
	}

	user, err := s.users.GetUser(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return similarity.Profile{}, "", notFound("user not found")
		}
		return similarity.Profile{}, "", internal("failed to load user", err)
	}

	return similarity.Normalize(subjectDocFromUser(user), 0), user.UserID, nil
}

// subjectDocFromUser maps a user record onto the nested profile shape:
// lifestyle flags come from the condition list and the smoking token.
func subjectDocFromUser(u *domain.User) map[string]any {
	doc := map[string]any{"id": u.UserID}
	if u.Nickname != "" {
		doc["name"] = u.Nickname
	}
	if u.AgeYears.Valid {
		doc["age"] = float64(u.AgeYears.Int64)
	}
	if u.Gender.Valid && u.Gender.String != "" {
		doc["gender"] = strings.ToLower(u.Gender.String)
	}

	if len(u.Vitals) > 0 {
		vitals := map[string]any{}
		if err := json.Unmarshal(u.Vitals, &vitals); err == nil && len(vitals) > 0 {
			doc["vitals"] = vitals
		}
	}

	lifestyle := map[string]any{
		"diabetic": hasCondition(u.MedicalConditions, "diabetes"),
		"highBP":   hasCondition(u.MedicalConditions, "hypertension", "high blood pressure"),
	}
	if u.SmokeAlcohol.Valid {
		if smokes, ok := parseYesNo(u.SmokeAlcohol.String); ok {
			lifestyle["smokes"] = smokes
		}
	}
	doc["lifestyle"] = lifestyle

	return doc
}

func hasCondition(conditions []string, names ...string) bool {
	for _, c := range conditions {
		lc := strings.ToLower(strings.TrimSpace(c))
		for _, name := range names {
			if strings.Contains(lc, name) {
				return true
			}
		}
	}
	return false
}

func parseYesNo(token string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "yes", "y", "true", "1":
		return true, true
	case "no", "n", "false", "0":
		return false, true
	}
	return false, false
}

// loadCandidatePool applies the hard pre-filter derived from the subject and
// falls back to the unfiltered pool when the filter starves the result set.
func (s *SimilarService) loadCandidatePool(ctx context.Context, subject similarity.Profile) ([]map[string]any, error) {
	filter := repository.PatientFilter{}
	if subject.Smokes != nil && !*subject.Smokes {
		// confirmed non-smokers are not compared against known smokers
		filter.ExcludeSmokers = true
	}

	docs, err := s.patients.ListDocuments(ctx, filter)
	if err != nil {
		return nil, internal("failed to load candidate pool", err)
	}
	if len(docs) == 0 && filter.ExcludeSmokers {
		docs, err = s.patients.ListDocuments(ctx, repository.PatientFilter{})
		if err != nil {
			return nil, internal("failed to load fallback pool", err)
		}
	}
	return docs, nil
}

// applyMismatchPenalty deducts a flat amount when the subject shows no kidney
// impairment (eGFR unknown or >= 60) but the candidate does, then clamps to [0,1].
func applyMismatchPenalty(score float64, subjectEGFR, candidateEGFR *float64) float64 {
	subjectImpaired := subjectEGFR != nil && *subjectEGFR < impairmentEGFRThreshold
	candidateImpaired := candidateEGFR != nil && *candidateEGFR < impairmentEGFRThreshold
	if !subjectImpaired && candidateImpaired {
		score -= ckdMismatchPenalty
	}
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
