package httpapi

import (
	"bytes"
	"fmt"
	"strings"

	"kidneyguard-data/internal/similarity"

	"github.com/xuri/excelize/v2"
)

// LabReportHeader 化验报告表头
var LabReportHeader = []string{
	"Field",
	"Value",
}

// GenerateLabReport renders a patient's lab record as an Excel workbook.
func GenerateLabReport(p *similarity.Profile) ([]byte, error) {
	f := excelize.NewFile()
	// Note: Don't defer Close() here, because WriteTo needs the file to be open

	sheetName := "Lab Report"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	for col, header := range LabReportHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		_ = f.SetCellValue(sheetName, cell, header)
	}

	rows := [][2]any{
		{"Patient", p.Name},
		{"Age", valueOrDash(p.Age)},
		{"Gender", textOrDash(p.Gender)},
		{"CKD Stage", p.Stage},
		{"eGFR (mL/min/1.73m²)", valueOrDash(p.EGFR)},
		{"BMI", valueOrDash(p.BMI)},
		{"Hemoglobin (g/dL)", valueOrDash(p.Hemoglobin)},
		{"Diagnosis", dashIfEmpty(p.Diagnosis)},
		{"Risk Factors", dashIfEmpty(strings.Join(p.RiskFactors, ", "))},
		{"Lab Flags", dashIfEmpty(strings.Join(p.LabFlags, ", "))},
	}
	for i, row := range rows {
		keyCell, _ := excelize.CoordinatesToCellName(1, i+2)
		valCell, _ := excelize.CoordinatesToCellName(2, i+2)
		_ = f.SetCellValue(sheetName, keyCell, row[0])
		_ = f.SetCellValue(sheetName, valCell, row[1])
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	_ = f.Close()
	return buf.Bytes(), nil
}

func valueOrDash(v *float64) any {
	if v == nil {
		return "-"
	}
	return *v
}

func textOrDash(v *string) string {
	if v == nil || *v == "" {
		return "-"
	}
	return *v
}

func dashIfEmpty(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
