package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kidneyguard-data/internal/config"
	"kidneyguard-data/internal/database"
	"kidneyguard-data/internal/domain"
	httpapi "kidneyguard-data/internal/http"
	"kidneyguard-data/internal/logger"
	"kidneyguard-data/internal/repository"
	"kidneyguard-data/internal/service"
	"kidneyguard-data/internal/similarity"
	"kidneyguard-data/internal/store"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, "kidneyguard-data")
	if err != nil {
		log, _ = zap.NewProduction()
	}
	defer log.Sync()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	kv := store.NewRedisKV(redisClient)
	simCache := store.NewRedisSimilarityCache(kv, cfg.Similar.CacheTTL)

	var (
		db       *sql.DB
		patients repository.PatientsRepository
		users    repository.UsersRepository
		content  repository.ContentRepository
	)
	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(&cfg.Database); err == nil {
			db = d
			log.Info("DB enabled for kidneyguard-data")
		} else {
			log.Warn("DB enabled but connection failed, falling back to memory repos", zap.Error(err))
		}
	}
	if db != nil {
		patients = repository.NewPostgresPatientsRepository(db)
		users = repository.NewPostgresUsersRepository(db)
		content = repository.NewPostgresContentRepository(db)
	} else {
		// DB 未就绪：内存 repo + 示例患者，保证前端联测可用
		memPatients := repository.NewMemoryPatientsRepository()
		seedDemoPatients(memPatients, log)
		patients = memPatients
		users = repository.NewMemoryUsersRepository()
		content = repository.NewMemoryContentRepository()
	}

	similarSvc := service.NewSimilarService(patients, users, simCache, log)
	statsSvc := service.NewStatsService(patients, log)

	authStore := httpapi.NewAuthStore()
	router := httpapi.NewRouter(log)
	router.RegisterAuthRoutes(httpapi.NewAuthHandler(users, authStore, log))
	router.RegisterProfileRoutes(httpapi.NewProfileHandler(users, authStore, log))
	router.RegisterPatientRoutes(
		httpapi.NewLabsHandler(patients, users, authStore, log),
		httpapi.NewSimilarHandler(similarSvc, authStore, cfg.Similar.DefaultLimit, log),
	)
	router.RegisterAnalyticsRoutes(httpapi.NewAnalyticsHandler(statsSvc, log))
	router.RegisterContentRoutes(httpapi.NewContentHandler(content, log))
	router.RegisterHealthRoute()

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		cancel()
	case <-errCh:
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	_ = redisClient.Close()
	if db != nil {
		_ = db.Close()
	}
}

// seedDemoPatients loads a small candidate pool so /patient/api/v1/similar
// returns rankings in DB-less dev runs.
func seedDemoPatients(repo *repository.MemoryPatientsRepository, log *zap.Logger) {
	docs := []map[string]any{
		{
			"id": "demo-amara", "name": "Amara", "age": 58.0, "gender": "female",
			"vitals":    map[string]any{"egfr": 48.0, "bmi": 31.2, "hemoglobin": 11.8},
			"lifestyle": map[string]any{"diabetic": true, "highBP": true, "smokes": false},
			"story":     "Diagnosed at stage 3 after a routine physical; manages with diet changes and a walking routine.",
		},
		{
			"id": "demo-raj", "name": "Raj", "age": 64.0, "gender": "male",
			"vitals":    map[string]any{"egfr": 35.0, "bmi": 27.5, "hemoglobin": 10.9},
			"lifestyle": map[string]any{"diabetic": true, "highBP": true, "smokes": true},
			"story":     "Long-time diabetic; quit smoking last year after his eGFR dropped below 40.",
		},
		{
			"id": "demo-elena", "name": "Elena", "age": 44.0, "gender": "female",
			"vitals":    map[string]any{"egfr": 72.0, "bmi": 24.1, "hemoglobin": 13.2},
			"lifestyle": map[string]any{"diabetic": false, "highBP": true, "smokes": false},
			"story":     "Caught early through a workplace screening; keeps blood pressure controlled with medication.",
		},
		{
			"id": "demo-tomas", "name": "Tomás", "age": 71.0, "gender": "male",
			"vitals":    map[string]any{"egfr": 22.0, "bmi": 23.0, "hemoglobin": 9.8},
			"lifestyle": map[string]any{"diabetic": false, "highBP": true, "smokes": false},
			"story":     "Stage 4, preparing for dialysis; active in a local kidney support group.",
		},
		{
			"id": "demo-mei", "name": "Mei", "age": 52.0, "gender": "female",
			"vitals":    map[string]any{"egfr": 88.0, "bmi": 21.7, "hemoglobin": 13.9},
			"lifestyle": map[string]any{"diabetic": false, "highBP": false, "smokes": false},
			"story":     "Family history of kidney disease; monitors labs yearly and stays ahead of it.",
		},
		{
			"id": "demo-victor", "name": "Victor", "age": 39.0, "gender": "male",
			"vitals":    map[string]any{"egfr": 55.0, "bmi": 33.4, "hemoglobin": 12.5},
			"lifestyle": map[string]any{"diabetic": true, "highBP": false, "smokes": true},
			"story":     "Young onset linked to obesity and diabetes; working with a dietitian on weight loss.",
		},
	}

	recs := make([]*domain.PatientRecord, 0, len(docs))
	for _, doc := range docs {
		raw, err := json.Marshal(doc)
		if err != nil {
			continue
		}
		p := similarity.Normalize(doc, 0)
		recs = append(recs, &domain.PatientRecord{
			PatientID: p.ID,
			Source:    "seed",
			Doc:       raw,
			EGFR:      p.EGFR,
			Smokes:    p.Smokes,
		})
	}
	n, err := repo.BulkInsert(context.Background(), recs)
	if err != nil {
		log.Warn("demo patient seed failed", zap.Error(err))
		return
	}
	log.Info("seeded demo patients", zap.Int("count", n))
}
