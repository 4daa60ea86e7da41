package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"tmscore/tripstate"
)

const planningSheet = "Planning"

var planningHeaders = []string{"Resource", "Day", "Position", "Trip", "Name", "Status", "Label", "Color"}

// PlanningRow is one decorated trip of the scheduler grid.
type PlanningRow struct {
	ResourceUID string
	Day         string
	Position    int
	TripUID     string
	TripName    string
	StatusKey   string
	StatusLabel string
	Color       string
}

// RowsFromBoard flattens a decorated board into export rows.
func RowsFromBoard(board []*tripstate.BoardTrip) []PlanningRow {
	rows := make([]PlanningRow, 0, len(board))
	for _, b := range board {
		rows = append(rows, PlanningRow{
			ResourceUID: b.ResourceUID,
			Day:         b.Day,
			Position:    b.Position,
			TripUID:     b.UID,
			TripName:    b.Name,
			StatusKey:   string(b.StatusKey),
			StatusLabel: b.Decoration.StatusLabel,
			Color:       b.Decoration.Color,
		})
	}
	return rows
}

// WritePlanning writes rows as an XLSX workbook with a single Planning sheet.
// Labels are translation keys; the client translates them.
func WritePlanning(w io.Writer, rows []PlanningRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(planningSheet); err != nil {
		return fmt.Errorf("new sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("delete default sheet: %w", err)
	}
	if index, err := f.GetSheetIndex(planningSheet); err == nil {
		f.SetActiveSheet(index)
	}

	for i, header := range planningHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(planningSheet, cell, header)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		f.SetRowStyle(planningSheet, 1, 1, style)
	}

	for i, r := range rows {
		row := i + 2
		values := []any{r.ResourceUID, r.Day, r.Position, r.TripUID, r.TripName, r.StatusKey, r.StatusLabel, r.Color}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(planningSheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", row, err)
		}
	}
	f.SetColWidth(planningSheet, "A", "H", 18)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
