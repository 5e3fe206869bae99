package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elsakane2015/classtrack/internal/models"
)

func TestAttendanceSheet(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	pid := int64(1)
	approved := models.ApprovalApproved

	records := []models.AttendanceRecord{
		{
			Date: day, StudentName: "张三", PeriodName: "第1节", PeriodID: &pid,
			Status: models.AttendanceExcused, ApprovalStatus: &approved,
			SourceType: models.SourceLeaveRequest, LeaveTypeName: "病假",
		},
		{
			Date: day, StudentName: "李四",
			Status: models.AttendancePresent, SourceType: models.SourceAuto,
		},
	}

	sheet := AttendanceSheet("7年级1班", day, day, records)
	require.Len(t, sheet.Rows, 2)
	assert.Equal(t, []string{"2026-03-02", "张三", "第1节", "excused", "approved", "leave_request", "病假"}, sheet.Rows[0])
	assert.Equal(t, "全天", sheet.Rows[1][2])
	assert.Equal(t, "", sheet.Rows[1][4])
	assert.Equal(t, "7年级1班 0302", sheet.Title)

	to := day.AddDate(0, 0, 4)
	ranged := AttendanceSheet("7年级1班", day, to, nil)
	assert.Equal(t, "7年级1班 0302-0306", ranged.Title)
}

func TestWorkbook_WriteTo(t *testing.T) {
	wb, err := NewWorkbook([]SheetSpec{{
		Title:  "考勤",
		Header: []string{"日期", "学生"},
		Rows:   [][]string{{"2026-03-02", "张三"}},
	}})
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := wb.WriteTo(&buf)
	require.NoError(t, err)
	assert.Positive(t, n)
	// xlsx files are zip archives.
	assert.Equal(t, []byte{'P', 'K'}, buf.Bytes()[:2])
}

func TestBuildFilename(t *testing.T) {
	from := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "attendance_7年级1班_20260302_20260306.xlsx", BuildFilename("7年级1班", from, to))
}
