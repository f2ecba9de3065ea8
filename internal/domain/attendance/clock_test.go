package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCivilDateUsesFixedZone(t *testing.T) {
	// 2024-05-06 20:30 UTC is already 2024-05-07 04:30 in UTC+8.
	instant := time.Date(2024, 5, 6, 20, 30, 0, 0, time.UTC)

	assert.Equal(t, "2024-05-07", DateKey(instant))
	assert.Equal(t, 4*60+30, MinuteOfDay(instant))

	civil := CivilDate(instant)
	assert.Equal(t, 0, civil.Hour())
	assert.Equal(t, 7, civil.Day())
	assert.Equal(t, Location, civil.Location())
}

func TestAt(t *testing.T) {
	d, err := ParseDate("2024-05-06")
	require.NoError(t, err)

	at, err := At(d, "09:05")
	require.NoError(t, err)
	assert.Equal(t, "2024-05-06T09:05:00+08:00", at.Format(time.RFC3339))

	_, err = At(d, "9 o'clock")
	assert.Error(t, err)
}
