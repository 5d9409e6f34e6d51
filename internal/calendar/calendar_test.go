package calendar

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workday/internal/core"
)

func TestFormatAndParseDateISO(t *testing.T) {
	d := time.Date(2024, time.February, 5, 23, 30, 0, 0, time.Local)
	assert.Equal(t, "2024-02-05", FormatDateISO(d))

	parsed, err := ParseDateISO("2024-02-05")
	require.NoError(t, err)
	assert.Equal(t, Date(2024, time.February, 5), parsed)

	_, err = ParseDateISO("2024-2-5")
	assert.True(t, errors.Is(err, core.ErrInvalidDateKey))
}

func TestAddDaysRollsOver(t *testing.T) {
	assert.Equal(t, Date(2024, time.March, 1), AddDays(Date(2024, time.February, 29), 1))
	assert.Equal(t, Date(2025, time.January, 1), AddDays(Date(2024, time.December, 31), 1))
	assert.Equal(t, Date(2023, time.December, 31), AddDays(Date(2024, time.January, 1), -1))
}

func TestStartOfWeekIsMonday(t *testing.T) {
	// 2024-06-02 is a Sunday.
	assert.Equal(t, Date(2024, time.May, 27), StartOfWeek(Date(2024, time.June, 2)))
	assert.Equal(t, Date(2024, time.June, 3), StartOfWeek(Date(2024, time.June, 3)))
	assert.Equal(t, Date(2024, time.June, 3), StartOfWeek(time.Date(2024, time.June, 5, 15, 4, 0, 0, time.Local)))
}

func TestMonthBoundsAndKey(t *testing.T) {
	first, last := MonthBounds(2024, time.February)
	assert.Equal(t, "2024-02-01", first)
	assert.Equal(t, "2024-02-29", last)
	assert.Equal(t, "2024-2", MonthKey(2024, time.February))
	assert.Equal(t, "February 2024", MonthLabel(2024, time.February))
}

func TestDaysInMonthGrid(t *testing.T) {
	tests := []struct {
		name        string
		year        int
		month       time.Month
		leadingNils int
		cells       int
	}{
		// 2024-07-01 is a Monday.
		{"starts on monday", 2024, time.July, 0, 35},
		// 2024-09-01 is a Sunday: 6 + 30 = 36 -> 42 cells.
		{"starts on sunday", 2024, time.September, 6, 42},
		// 2021-02-01 is a Monday: exactly four rows.
		{"four rows", 2021, time.February, 0, 28},
		// 2024-03-01 is a Friday: 4 + 31 = 35.
		{"starts on friday", 2024, time.March, 4, 35},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			grid := DaysInMonthGrid(tt.year, tt.month)
			require.Len(t, grid, tt.cells)
			assert.LessOrEqual(t, len(grid), MaxGridCells)
			assert.Zero(t, len(grid)%7)

			for i := 0; i < tt.leadingNils; i++ {
				assert.Nil(t, grid[i], "cell %d should be padding", i)
			}
			require.NotNil(t, grid[tt.leadingNils])
			assert.Equal(t, 1, grid[tt.leadingNils].Day())
			assert.Equal(t, (time.Monday+time.Weekday(tt.leadingNils))%7, grid[tt.leadingNils].Weekday())

			count := 0
			for _, c := range grid {
				if c != nil {
					count++
				}
			}
			assert.Equal(t, DaysInMonth(tt.year, tt.month), count)
		})
	}
}

func TestWeeksInMonthCoversEveryDayOnce(t *testing.T) {
	for year := 2023; year <= 2025; year++ {
		for month := time.January; month <= time.December; month++ {
			weeks := WeeksInMonth(Date(year, month, 15))
			seen := make(map[string]int)

			for i, w := range weeks {
				assert.Equal(t, i+1, w.Number)
				assert.Equal(t, time.Monday, w.Monday.Weekday())
				if i > 0 {
					assert.True(t, weeks[i-1].Monday.Before(w.Monday))
				}
				for j, d := range w.Days {
					assert.Equal(t, w.Monday, StartOfWeek(d))
					if j > 0 {
						assert.Equal(t, AddDays(w.Days[j-1], 1), d, "days must be contiguous")
					}
					seen[FormatDateISO(d)]++
				}
			}

			require.Len(t, seen, DaysInMonth(year, month), "%d-%d", year, month)
			for key, n := range seen {
				assert.Equal(t, 1, n, "day %s bucketed %d times", key, n)
			}
		}
	}
}

func TestWeeksInMonthEdges(t *testing.T) {
	// September 2024 starts on a Sunday, so the first bucket holds one day.
	weeks := WeeksInMonth(Date(2024, time.September, 10))
	require.Len(t, weeks, 6)
	assert.Equal(t, Date(2024, time.August, 26), weeks[0].Monday)
	assert.Equal(t, []time.Time{Date(2024, time.September, 1)}, weeks[0].Days)
	assert.Equal(t, Date(2024, time.September, 1), weeks[0].Start())
	assert.Equal(t, Date(2024, time.September, 30), weeks[5].End())
	assert.True(t, weeks[1].Contains(Date(2024, time.September, 8)))
	assert.False(t, weeks[1].Contains(Date(2024, time.September, 9)))
}
