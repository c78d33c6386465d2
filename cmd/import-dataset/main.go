package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"kidneyguard-data/internal/config"
	"kidneyguard-data/internal/database"
	"kidneyguard-data/internal/domain"
	"kidneyguard-data/internal/logger"
	"kidneyguard-data/internal/repository"
	"kidneyguard-data/internal/similarity"

	"github.com/go-resty/resty/v2"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// import-dataset loads a CKD dataset (CSV or XLSX) into the patients table.
// Rows are stored as raw documents; eGFR and smoking status are extracted into
// columns so the similarity pipeline can filter without parsing JSON.
//
// Usage:
//
//	import-dataset -file kidney_disease.csv
//	import-dataset -url https://example.com/ckd.xlsx
func main() {
	var (
		filePath  = flag.String("file", "", "path to a local CSV/XLSX dataset")
		url       = flag.String("url", "", "URL of a CSV/XLSX dataset to download")
		batchSize = flag.Int("batch", 500, "rows per insert batch")
	)
	flag.Parse()

	cfg := config.Load()
	log, err := logger.New(cfg.Log.Level, "console", "import-dataset")
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init failed:", err)
		os.Exit(1)
	}
	defer log.Sync()

	if (*filePath == "") == (*url == "") {
		log.Fatal("exactly one of -file or -url is required")
	}

	data, name, err := loadDataset(*filePath, *url)
	if err != nil {
		log.Fatal("failed to load dataset", zap.Error(err))
	}

	rows, err := parseRows(data, name)
	if err != nil {
		log.Fatal("failed to parse dataset", zap.Error(err))
	}
	if len(rows) == 0 {
		log.Fatal("dataset has no data rows")
	}
	log.Info("parsed dataset", zap.String("source", name), zap.Int("rows", len(rows)))

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	patients := repository.NewPostgresPatientsRepository(db)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	total := 0
	for start := 0; start < len(rows); start += *batchSize {
		end := start + *batchSize
		if end > len(rows) {
			end = len(rows)
		}
		recs, err := toRecords(rows[start:end], start)
		if err != nil {
			log.Fatal("failed to build records", zap.Error(err))
		}
		n, err := patients.BulkInsert(ctx, recs)
		if err != nil {
			log.Fatal("insert batch failed", zap.Int("offset", start), zap.Error(err))
		}
		total += n
	}
	log.Info("import complete", zap.Int("inserted", total), zap.Int("parsed", len(rows)))
}

func loadDataset(filePath, url string) ([]byte, string, error) {
	if filePath != "" {
		data, err := os.ReadFile(filePath)
		return data, filepath.Base(filePath), err
	}

	client := resty.New().SetTimeout(60 * time.Second)
	resp, err := client.R().Get(url)
	if err != nil {
		return nil, "", err
	}
	if resp.StatusCode() != 200 {
		return nil, "", fmt.Errorf("download failed: status %d", resp.StatusCode())
	}
	return resp.Body(), filepath.Base(url), nil
}

// parseRows turns a CSV or XLSX payload into one map per data row, keyed by
// the header row. Header names are lower-cased so column lookups stay stable
// across dataset exports.
func parseRows(data []byte, name string) ([]map[string]any, error) {
	if strings.HasSuffix(strings.ToLower(name), ".xlsx") {
		return parseXLSX(data)
	}
	return parseCSV(data)
}

func parseCSV(data []byte) ([]map[string]any, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	normalizeHeader(header)

	var rows []map[string]any
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, rowToDoc(header, record))
	}
	return rows, nil
}

func parseXLSX(data []byte) ([]map[string]any, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	cells, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}
	if len(cells) < 2 {
		return nil, fmt.Errorf("sheet %q has no data rows", sheets[0])
	}

	header := cells[0]
	normalizeHeader(header)

	rows := make([]map[string]any, 0, len(cells)-1)
	for _, record := range cells[1:] {
		rows = append(rows, rowToDoc(header, record))
	}
	return rows, nil
}

func normalizeHeader(header []string) {
	for i, h := range header {
		header[i] = strings.ToLower(strings.TrimSpace(h))
	}
}

// rowToDoc keeps numeric-looking cells as numbers so normalization does not
// have to re-parse strings. Empty cells and "?" placeholders are dropped.
func rowToDoc(header []string, record []string) map[string]any {
	doc := make(map[string]any, len(header))
	for i, key := range header {
		if key == "" || i >= len(record) {
			continue
		}
		val := strings.TrimSpace(record[i])
		if val == "" || val == "?" {
			continue
		}
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			doc[key] = f
		} else {
			doc[key] = val
		}
	}
	return doc
}

func toRecords(rows []map[string]any, offset int) ([]*domain.PatientRecord, error) {
	recs := make([]*domain.PatientRecord, 0, len(rows))
	for i, doc := range rows {
		raw, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", offset+i, err)
		}
		p := similarity.Normalize(doc, offset+i)
		recs = append(recs, &domain.PatientRecord{
			PatientID: p.ID,
			Source:    "dataset",
			Doc:       raw,
			EGFR:      p.EGFR,
			Smokes:    p.Smokes,
		})
	}
	return recs, nil
}
