package application

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dataset "flexmarket-report/internal/dataset/domain"
)

func date(y int, m time.Month, d int) civil.Date { return civil.Date{Year: y, Month: m, Day: d} }

func TestPeriodPreviousMonth(t *testing.T) {
	p, err := NewPeriod(date(2024, time.January, 1), date(2024, time.January, 31))
	require.NoError(t, err)

	assert.Equal(t, date(2023, time.December, 1), p.PrevFrom())
	assert.Equal(t, date(2023, time.December, 31), p.PrevTo())
	assert.Equal(t, "Jan-24", p.Month())
	assert.Equal(t, "Dec-23", p.PrevMonth())
	assert.Equal(t, dataset.Range{From: date(2023, time.December, 1), To: date(2024, time.January, 31)}, p.WithPrevious())
	assert.Equal(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), p.MonthStart())

	mid, err := NewPeriod(date(2024, time.March, 15), date(2024, time.April, 2))
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.February, 1), mid.PrevFrom())
}

func TestNewPeriodRejectsInvertedRange(t *testing.T) {
	_, err := NewPeriod(date(2024, time.February, 1), date(2024, time.January, 1))
	assert.Error(t, err)
}

func TestWithin(t *testing.T) {
	rng := dataset.Range{From: date(2024, time.January, 1), To: date(2024, time.January, 31)}
	assert.True(t, within(time.Date(2024, time.January, 31, 23, 30, 0, 0, time.UTC), rng))
	assert.False(t, within(time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC), rng))
	assert.False(t, within(time.Date(2023, time.December, 31, 23, 59, 0, 0, time.UTC), rng))
}
