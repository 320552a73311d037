// Package export renders admin data as spreadsheets.
package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/garnizeh/realty/pkg/models"
)

const leadsSheet = "Leads"

var leadHeaders = []string{"ID", "Received", "Name", "Phone", "Email", "Project", "Source", "Message"}

var leadWidths = []float64{8, 20, 24, 16, 28, 32, 14, 60}

// LeadsWorkbook writes leads into a single-sheet xlsx workbook with a
// frozen, styled header row.
func LeadsWorkbook(leads []models.Lead) ([]byte, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(leadsSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		f.Close()
		return nil, fmt.Errorf("delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create header style: %w", err)
	}

	for i, h := range leadHeaders {
		if err := setCell(f, i+1, 1, h); err != nil {
			f.Close()
			return nil, err
		}
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			f.Close()
			return nil, err
		}
		if err := f.SetColWidth(leadsSheet, col, col, leadWidths[i]); err != nil {
			f.Close()
			return nil, fmt.Errorf("set column width: %w", err)
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(leadHeaders), 1)
	if err := f.SetCellStyle(leadsSheet, "A1", last, headerStyle); err != nil {
		f.Close()
		return nil, fmt.Errorf("style header: %w", err)
	}

	for i, l := range leads {
		row := i + 2
		values := []any{
			l.ID,
			time.UnixMilli(l.Created).UTC().Format("2006-01-02 15:04"),
			l.Name,
			l.Phone,
			l.Email,
			l.ProjectTitle,
			l.Source,
			l.Message,
		}
		for col, v := range values {
			if err := setCell(f, col+1, row, v); err != nil {
				f.Close()
				return nil, fmt.Errorf("lead %d: %w", l.ID, err)
			}
		}
	}

	if err := f.SetPanes(leadsSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("freeze header: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func setCell(f *excelize.File, col, row int, v any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(leadsSheet, cell, v)
}
