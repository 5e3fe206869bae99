package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/elsakane2015/classtrack/internal/models"
)

type SheetSpec struct {
	Title  string
	Header []string
	Rows   [][]string
}

type Workbook struct {
	File *excelize.File
}

// NewWorkbook builds a workbook with one sheet per spec, bold filtered
// headers and heuristic column widths.
func NewWorkbook(sheets []SheetSpec) (*Workbook, error) {
	f := excelize.NewFile()

	bold, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	for i, s := range sheets {
		name := s.Title
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else {
			if _, err := f.NewSheet(name); err != nil {
				return nil, fmt.Errorf("new sheet: %w", err)
			}
		}
		for col, h := range s.Header {
			cell := fmt.Sprintf("%s1", colName(col+1))
			if err := f.SetCellStr(name, cell, h); err != nil {
				return nil, fmt.Errorf("set cell %s: %w", cell, err)
			}
		}
		end := colName(len(s.Header)) + "1"
		_ = f.SetCellStyle(name, "A1", end, bold)
		_ = f.AutoFilter(name, "A1:"+end, nil)

		for r, row := range s.Rows {
			for c, val := range row {
				cell := fmt.Sprintf("%s%d", colName(c+1), r+2)
				if err := f.SetCellStr(name, cell, val); err != nil {
					return nil, fmt.Errorf("set cell %s: %w", cell, err)
				}
			}
		}
		for c := 1; c <= len(s.Header); c++ {
			maxim := len(s.Header[c-1])
			for r := 0; r < minim(50, len(s.Rows)); r++ {
				if l := len(s.Rows[r][c-1]); l > maxim {
					maxim = l
				}
			}
			w := float64(maxim) * 0.9
			if w < 12 {
				w = 12
			}
			if w > 40 {
				w = 40
			}
			_ = f.SetColWidth(name, colName(c), colName(c), w)
		}
	}
	return &Workbook{File: f}, nil
}

func (w *Workbook) WriteTo(dst io.Writer) (int64, error) {
	return w.File.WriteTo(dst)
}

// AttendanceSheet renders class records for a date range into one sheet.
func AttendanceSheet(className string, from, to time.Time, records []models.AttendanceRecord) SheetSpec {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		period := r.PeriodName
		if r.WholeDay() {
			period = "全天"
		}
		label := r.Details.Label
		if label == "" && r.LeaveTypeName != "" {
			label = r.LeaveTypeName
		}
		rows = append(rows, []string{
			r.Date.Format("2006-01-02"),
			r.StudentName,
			period,
			string(r.Status),
			approvalString(r.ApprovalStatus),
			string(r.SourceType),
			label,
		})
	}
	title := fmt.Sprintf("%s %s", className, from.Format("0102"))
	if !from.Equal(to) {
		title += "-" + to.Format("0102")
	}
	return SheetSpec{
		Title:  title,
		Header: []string{"日期", "学生", "节次", "状态", "审批", "来源", "说明"},
		Rows:   rows,
	}
}

func BuildFilename(className string, from, to time.Time) string {
	return fmt.Sprintf("attendance_%s_%s_%s.xlsx",
		className, from.Format("20060102"), to.Format("20060102"))
}

func approvalString(a *models.ApprovalStatus) string {
	if a == nil {
		return ""
	}
	return string(*a)
}

// helpers
func colName(n int) string {
	s := ""
	for n > 0 {
		n--
		s = string(rune('A'+(n%26))) + s
		n /= 26
	}
	return s
}

func minim(a, b int) int {
	if a < b {
		return a
	}
	return b
}
