package http

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	costapp "agency-admin/internal/coststandard/application"
)

// moneyFormat is excelize's built-in "#,##0.00".
const moneyFormat = 4

// BuildCostStandardsXLSX renders a resolved listing as a workbook.
// Daily costs are numeric cells written at cent precision.
func BuildCostStandardsXLSX(result *costapp.ListResult, labels StatusLabeler) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "cost_standards"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	_ = f.SetCellValue(sheet, "A1", "Cost Standards")
	_ = f.SetCellValue(sheet, "A2", "As Of")
	_ = f.SetCellValue(sheet, "B2", result.AsOf.String())

	headers := []string{"ID", "Employee Level", "City Type", "Effective From", "Daily Cost", "Currency", "Status", "Remark"}
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 4)
		if err != nil {
			return nil, err
		}
		_ = f.SetCellValue(sheet, cell, header)
	}
	for i, item := range result.Items {
		row := i + 5
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), item.ID)
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), item.Key.EmployeeLevel)
		_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", row), string(item.Key.CityType))
		_ = f.SetCellValue(sheet, fmt.Sprintf("D%d", row), item.EffectiveFrom.String())
		if err := f.SetCellFloat(sheet, fmt.Sprintf("E%d", row), item.DailyCost.Round(2).InexactFloat64(), 2, 64); err != nil {
			return nil, err
		}
		_ = f.SetCellValue(sheet, fmt.Sprintf("F%d", row), item.Currency)
		_ = f.SetCellValue(sheet, fmt.Sprintf("G%d", row), labelOf(labels, string(item.Status)))
		_ = f.SetCellValue(sheet, fmt.Sprintf("H%d", row), item.Remark)
	}
	if n := len(result.Items); n > 0 {
		style, err := f.NewStyle(&excelize.Style{NumFmt: moneyFormat})
		if err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(sheet, "E5", fmt.Sprintf("E%d", n+4), style); err != nil {
			return nil, err
		}
	}

	if len(result.Conflicts) > 0 {
		conflicts := "conflicts"
		if _, err := f.NewSheet(conflicts); err != nil {
			return nil, err
		}
		_ = f.SetCellValue(conflicts, "A1", "Employee Level")
		_ = f.SetCellValue(conflicts, "B1", "City Type")
		for i, key := range result.Conflicts {
			row := i + 2
			_ = f.SetCellValue(conflicts, fmt.Sprintf("A%d", row), key.EmployeeLevel)
			_ = f.SetCellValue(conflicts, fmt.Sprintf("B%d", row), string(key.CityType))
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PDFOptions controls PDF rendering.
type PDFOptions struct {
	// FontPath names a TrueType font covering employee levels and status
	// labels. Without one the core Latin-1 font is used: raw status codes
	// are printed and characters outside Latin-1 come out as '?'.
	FontPath string
	Labels   StatusLabeler
}

// BuildCostStandardsPDF renders a resolved listing as a PDF table.
func BuildCostStandardsPDF(result *costapp.ListResult, opts PDFOptions) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	family := "Arial"
	text := latin1Text(pdf.UnicodeTranslatorFromDescriptor(""))
	status := func(code string) string { return code }
	if opts.FontPath != "" {
		pdf.AddUTF8Font("unicode", "", opts.FontPath)
		pdf.AddUTF8Font("unicode", "B", opts.FontPath)
		if err := pdf.Error(); err != nil {
			return nil, fmt.Errorf("pdf font %s: %w", opts.FontPath, err)
		}
		family = "unicode"
		text = func(s string) string { return s }
		status = func(code string) string { return labelOf(opts.Labels, code) }
	}

	pdf.SetFont(family, "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Cost Standards")
	pdf.Ln(10)
	pdf.SetFont(family, "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("As of: %s", result.AsOf))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Records: %d", len(result.Items)))
	pdf.Ln(8)

	pdf.SetFont(family, "B", 10)
	pdf.CellFormat(40, 6, "Employee Level", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "City Type", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Effective From", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Daily Cost", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "Currency", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Status", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont(family, "", 10)
	for _, item := range result.Items {
		pdf.CellFormat(40, 6, text(item.Key.EmployeeLevel), "1", 0, "L", false, 0, "")
		pdf.CellFormat(35, 6, text(string(item.Key.CityType)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(35, 6, item.EffectiveFrom.String(), "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 6, item.DailyCost.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 6, item.Currency, "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, status(string(item.Status)), "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}

	if len(result.Conflicts) > 0 {
		pdf.Ln(4)
		pdf.SetFont(family, "B", 10)
		pdf.Cell(0, 6, "Groups with duplicate effective dates:")
		pdf.Ln(5)
		pdf.SetFont(family, "", 10)
		for _, key := range result.Conflicts {
			pdf.Cell(0, 6, text(key.String()))
			pdf.Ln(5)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// latin1Text replaces runes the core fonts cannot draw with '?' before
// translating to the font's code page.
func latin1Text(translate func(string) string) func(string) string {
	return func(s string) string {
		return translate(strings.Map(func(r rune) rune {
			if r < 0x80 || (r >= 0xA0 && r <= 0xFF) {
				return r
			}
			return '?'
		}, s))
	}
}
