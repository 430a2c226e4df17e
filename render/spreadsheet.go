package render

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const ReportSheet = "Team"

// RenderTeamSpreadsheet writes the team report columns into an XLSX
// workbook. Money cells are numeric with two decimals.
func RenderTeamSpreadsheet(rows []ReportRow) ([]byte, error) {
	if err := validateRows("spreadsheet", rows); err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ReportSheet); err != nil {
		return nil, err
	}
	header := make([]interface{}, len(ReportHeader))
	for i, h := range ReportHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(ReportSheet, "A1", &header); err != nil {
		return nil, err
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		values := []interface{}{
			r.Name,
			r.Salary.InexactFloat64(),
			r.WorkingDays,
			r.VacationDays,
			r.Bonus.InexactFloat64(),
		}
		if err := f.SetSheetRow(ReportSheet, cell, &values); err != nil {
			return nil, fmt.Errorf("write row for %d: %w", r.EmployeeID, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(ReportSheet, "A1", "E1", bold); err != nil {
		return nil, err
	}
	if len(rows) > 0 {
		money, err := f.NewStyle(&excelize.Style{NumFmt: 2})
		if err != nil {
			return nil, err
		}
		last := len(rows) + 1
		for _, col := range []string{"B", "E"} {
			if err := f.SetCellStyle(ReportSheet, fmt.Sprintf("%s2", col), fmt.Sprintf("%s%d", col, last), money); err != nil {
				return nil, err
			}
		}
	}
	if err := f.SetColWidth(ReportSheet, "A", "E", 24); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
