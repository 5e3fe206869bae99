package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseClock(t *testing.T) {
	d, err := ParseClock("09:30")
	assert.NoError(t, err)
	assert.Equal(t, 9*time.Hour+30*time.Minute, d)

	d, err = ParseClock(" 00:00 ")
	assert.NoError(t, err)
	assert.Equal(t, time.Duration(0), d)

	for _, bad := range []string{"", "9", "24:00", "12:60", "ab:cd"} {
		_, err := ParseClock(bad)
		assert.Error(t, err, "input %q", bad)
	}
}
