package recurrence

import (
	"testing"
	"time"

	"github.com/slotbook/slotbook/services/booking-service/internal/availability"
	"github.com/slotbook/slotbook/services/booking-service/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2026-03-09 is a Monday.
func anchorAt(day, startH, endH int) availability.Interval {
	return availability.Interval{
		Start: time.Date(2026, 3, day, startH, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 3, day, endH, 0, 0, 0, time.UTC),
	}
}

func request(pattern string, anchor availability.Interval) Request {
	return Request{
		BusinessID: "biz-1",
		Reason:     "Lunch",
		Color:      "#ffaa00",
		Anchor:     anchor,
		Rule:       Rule{Pattern: pattern},
	}
}

func TestExpandOnce(t *testing.T) {
	blocks, err := Expand(request(model.PatternOnce, anchorAt(9, 12, 13)))
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.False(t, blocks[0].IsRecurring)
	assert.Empty(t, blocks[0].SeriesID)
}

func TestExpandDailyDefaultBound(t *testing.T) {
	blocks, err := Expand(request(model.PatternDaily, anchorAt(9, 12, 13)))
	require.NoError(t, err)
	require.Len(t, blocks, DefaultMaxOccurrences)

	series := blocks[0].SeriesID
	require.NotEmpty(t, series)
	for i, b := range blocks {
		assert.Equal(t, series, b.SeriesID)
		assert.Equal(t, 12, b.StartTime.Hour())
		assert.Equal(t, 13, b.EndTime.Hour())
		assert.Equal(t, time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC).AddDate(0, 0, i), b.StartTime)
	}
}

func TestExpandWeeklyUntilEndDateInclusive(t *testing.T) {
	req := request(model.PatternWeekly, anchorAt(9, 9, 10))
	req.Rule.EndDate = time.Date(2026, 3, 30, 0, 0, 0, 0, time.UTC)

	blocks, err := Expand(req)
	require.NoError(t, err)
	require.Len(t, blocks, 4)
	for _, b := range blocks {
		assert.Equal(t, time.Monday, b.StartTime.Weekday())
	}
	assert.Equal(t, 30, blocks[3].StartTime.Day())
}

func TestExpandCustomWeeklyYear(t *testing.T) {
	req := request(model.PatternCustomWeekly, anchorAt(9, 9, 10))
	req.Rule.Weekdays = []time.Weekday{time.Monday, time.Wednesday}

	blocks, err := Expand(req)
	require.NoError(t, err)
	assert.Len(t, blocks, 105)
	for _, b := range blocks {
		wd := b.StartTime.Weekday()
		assert.True(t, wd == time.Monday || wd == time.Wednesday, "unexpected weekday %s", wd)
	}
}

func TestExpandCustomWeeklyExplicitBound(t *testing.T) {
	req := request(model.PatternCustomWeekly, anchorAt(9, 9, 10))
	req.Rule.Weekdays = []time.Weekday{time.Tuesday, time.Thursday}
	req.Rule.MaxOccurrences = 3

	blocks, err := Expand(req)
	require.NoError(t, err)
	require.Len(t, blocks, 3)
	assert.Equal(t, []int{10, 12, 17}, []int{blocks[0].StartTime.Day(), blocks[1].StartTime.Day(), blocks[2].StartTime.Day()})
}

func TestExpandMonthlyClampsToLastDay(t *testing.T) {
	anchor := availability.Interval{
		Start: time.Date(2026, 1, 31, 15, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 1, 31, 16, 0, 0, 0, time.UTC),
	}
	req := request(model.PatternMonthly, anchor)
	req.Rule.MaxOccurrences = 4

	blocks, err := Expand(req)
	require.NoError(t, err)
	require.Len(t, blocks, 4)

	var got []string
	for _, b := range blocks {
		got = append(got, b.StartTime.Format("2006-01-02 15:04"))
	}
	assert.Equal(t, []string{"2026-01-31 15:00", "2026-02-28 15:00", "2026-03-31 15:00", "2026-04-30 15:00"}, got)
}

func TestExpandMonthlyLeapYear(t *testing.T) {
	anchor := availability.Interval{
		Start: time.Date(2028, 1, 30, 8, 0, 0, 0, time.UTC),
		End:   time.Date(2028, 1, 30, 9, 0, 0, 0, time.UTC),
	}
	req := request(model.PatternMonthly, anchor)
	req.Rule.MaxOccurrences = 2

	blocks, err := Expand(req)
	require.NoError(t, err)
	assert.Equal(t, 29, blocks[1].StartTime.Day())
}

func TestExpandOvernightBlockKeepsSpan(t *testing.T) {
	anchor := availability.Interval{
		Start: time.Date(2026, 3, 9, 22, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC),
	}
	req := request(model.PatternDaily, anchor)
	req.Rule.MaxOccurrences = 2

	blocks, err := Expand(req)
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, time.Date(2026, 3, 11, 6, 0, 0, 0, time.UTC), blocks[1].EndTime)
}

func TestExpandKeepsWallClockAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skip("tzdata not available")
	}
	anchor := availability.Interval{
		Start: time.Date(2026, 3, 27, 9, 0, 0, 0, loc),
		End:   time.Date(2026, 3, 27, 10, 0, 0, 0, loc),
	}
	req := request(model.PatternDaily, anchor)
	req.Rule.MaxOccurrences = 4

	blocks, err := Expand(req)
	require.NoError(t, err)
	for _, b := range blocks {
		assert.Equal(t, 9, b.StartTime.Hour())
		assert.Equal(t, time.Hour, b.EndTime.Sub(b.StartTime))
	}
}

func TestExpandRejectsInvalidConfig(t *testing.T) {
	empty := request(model.PatternCustomWeekly, anchorAt(9, 9, 10))
	_, err := Expand(empty)
	assert.ErrorIs(t, err, ErrInvalidRecurrenceConfig)

	early := request(model.PatternDaily, anchorAt(9, 9, 10))
	early.Rule.EndDate = time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)
	_, err = Expand(early)
	assert.ErrorIs(t, err, ErrInvalidRecurrenceConfig)

	unknown := request("yearly", anchorAt(9, 9, 10))
	_, err = Expand(unknown)
	assert.ErrorIs(t, err, ErrInvalidRecurrenceConfig)

	badDay := request(model.PatternCustomWeekly, anchorAt(9, 9, 10))
	badDay.Rule.Weekdays = []time.Weekday{9}
	_, err = Expand(badDay)
	assert.ErrorIs(t, err, ErrInvalidRecurrenceConfig)

	inverted := request(model.PatternDaily, anchorAt(9, 10, 9))
	_, err = Expand(inverted)
	assert.ErrorIs(t, err, availability.ErrInvalidInterval)
}

func TestExpandSameDayEndDateYieldsOne(t *testing.T) {
	req := request(model.PatternDaily, anchorAt(9, 9, 10))
	req.Rule.EndDate = time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)

	blocks, err := Expand(req)
	require.NoError(t, err)
	assert.Len(t, blocks, 1)
}

func TestParseWeekday(t *testing.T) {
	for in, want := range map[string]time.Weekday{
		"0": time.Sunday, "6": time.Saturday, "mon": time.Monday, "Wednesday": time.Wednesday, " FRI ": time.Friday, "thursday": time.Thursday,
	} {
		got, err := ParseWeekday(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"7", "-1", "funday", "", "monkey", "thursdayx", "tues"} {
		_, err := ParseWeekday(in)
		assert.Error(t, err, in)
	}
}
