// Package report produces per-project XLSX screening reports for human
// review sessions: one row per scored record, highest relevance first.
package report

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/veslabs/litscreen/internal/core/domain"
)

const sheetName = "Screening"

var header = []string{
	"Score", "Category", "Title", "Year", "Journal", "Authors", "DOI",
	"Matched criteria", "Engine version",
}

// WriteXLSX renders the scored records of one project to path.
func WriteXLSX(path, projectID string, records []domain.ScoredRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("drop default sheet: %w", err)
	}

	for col, title := range header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("header cell: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, title); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	for i, sr := range records {
		row := []any{
			sr.Assessment.TotalScore,
			string(sr.Assessment.Category),
			sr.Record.Title,
			sr.Record.PublicationYear,
			sr.Record.JournalName,
			strings.Join(sr.Record.Authors, "; "),
			sr.Record.DOI,
			matchedCriteria(sr.Assessment.Breakdown),
			sr.Assessment.EngineVersion,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("row cell: %w", err)
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SetSheetName(sheetName, projectID); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

// matchedCriteria lists the breakdown entries that actually contributed
// points, with the terms that triggered them.
func matchedCriteria(breakdown []domain.CriterionScore) string {
	parts := make([]string, 0, len(breakdown))
	for _, entry := range breakdown {
		if entry.Points == 0 {
			continue
		}
		if len(entry.MatchedTerms) > 0 {
			parts = append(parts, fmt.Sprintf("%s (%s)", entry.Name, strings.Join(entry.MatchedTerms, ", ")))
			continue
		}
		parts = append(parts, entry.Name)
	}
	return strings.Join(parts, "; ")
}
