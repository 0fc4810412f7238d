package http

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	costapp "agency-admin/internal/coststandard/application"
	coststandard "agency-admin/internal/coststandard/domain"
	"agency-admin/internal/versioning"
)

func exportFixture() *costapp.ListResult {
	return &costapp.ListResult{
		AsOf: versioning.MustParseDate("2024-08-01"),
		Items: []coststandard.Resolved{
			{
				CostStandard: coststandard.CostStandard{
					ID:            "cs-1",
					TenantID:      "tenant-a",
					Key:           coststandard.GroupKey{EmployeeLevel: "高级顾问", CityType: coststandard.CityTier1},
					EffectiveFrom: versioning.MustParseDate("2024-01-01"),
					DailyCost:     decimal.RequireFromString("800"),
					Currency:      "CNY",
				},
				Status: versioning.StatusActive,
			},
			{
				CostStandard: coststandard.CostStandard{
					ID:            "cs-2",
					TenantID:      "tenant-a",
					Key:           coststandard.GroupKey{EmployeeLevel: "P3", CityType: coststandard.CityTier2},
					EffectiveFrom: versioning.MustParseDate("2024-01-01"),
					DailyCost:     decimal.RequireFromString("0.10"),
					Currency:      "CNY",
				},
				Status: versioning.StatusActive,
			},
		},
	}
}

func TestBuildCostStandardsXLSX_WritesCents(t *testing.T) {
	data, err := BuildCostStandardsXLSX(exportFixture(), nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	for cell, want := range map[string]string{"E5": "800.00", "E6": "0.10"} {
		got, err := f.GetCellValue("cost_standards", cell, excelize.Options{RawCellValue: true})
		if err != nil {
			t.Fatalf("read %s: %v", cell, err)
		}
		if got != want {
			t.Fatalf("%s = %q, want %q", cell, got, want)
		}
	}
	if level, _ := f.GetCellValue("cost_standards", "B5"); level != "高级顾问" {
		t.Fatalf("xlsx should keep the level verbatim, got %q", level)
	}
}

func TestBuildCostStandardsPDF_CoreFontFallback(t *testing.T) {
	data, err := BuildCostStandardsPDF(exportFixture(), PDFOptions{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("expected a PDF document")
	}

	text := latin1Text(func(s string) string { return s })
	if got := text("P3 高级"); got != "P3 ??" {
		t.Fatalf("unexpected fallback text %q", got)
	}
	if got := text("Zoë"); got != "Zoë" {
		t.Fatalf("latin-1 letters should survive, got %q", got)
	}
}

func TestBuildCostStandardsPDF_MissingFont(t *testing.T) {
	if _, err := BuildCostStandardsPDF(exportFixture(), PDFOptions{FontPath: "/nonexistent/font.ttf"}); err == nil {
		t.Fatalf("expected an error for a missing font file")
	}
}
