package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/elsakane2015/classtrack/internal/models"
)

func TestRenderDetail(t *testing.T) {
	names := map[int64]string{1: "第1节", 2: "第2节"}

	t.Run("whole day default name", func(t *testing.T) {
		r := rec(models.AttendanceLeave, nil, models.Details{})
		assert.Equal(t, "请假(全天)", RenderDetail(&r, "", names))
	})

	t.Run("type name with periods", func(t *testing.T) {
		r := rec(models.AttendanceLeave, nil, models.Details{PeriodIDs: models.Int64List{1, 2}})
		assert.Equal(t, "病假(第1节,第2节)", RenderDetail(&r, "病假", names))
	})

	t.Run("single period column", func(t *testing.T) {
		r := rec(models.AttendanceExcused, pid(2), models.Details{})
		assert.Equal(t, "事假(第2节)", RenderDetail(&r, "事假", names))
	})

	t.Run("option wins over periods", func(t *testing.T) {
		r := rec(models.AttendanceLeave, nil, models.Details{Option: "上午", PeriodIDs: models.Int64List{1}})
		assert.Equal(t, "病假(上午)", RenderDetail(&r, "病假", names))
	})

	t.Run("explicit label wins over everything", func(t *testing.T) {
		r := rec(models.AttendanceLeave, pid(1), models.Details{Label: "晚点名", Option: "上午"})
		assert.Equal(t, "晚点名", RenderDetail(&r, "病假", names))
	})

	t.Run("unknown period ids fall back to bare name", func(t *testing.T) {
		r := rec(models.AttendanceLeave, pid(9), models.Details{})
		assert.Equal(t, "病假", RenderDetail(&r, "病假", names))
	})
}
