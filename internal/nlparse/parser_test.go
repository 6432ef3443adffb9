package nlparse_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tiliavir/timescribe/internal/model"
	"github.com/Tiliavir/timescribe/internal/nlparse"
)

var now = time.Date(2026, 2, 22, 12, 0, 0, 0, time.UTC)

func at(day, hour, min int) time.Time {
	return time.Date(2026, 2, day, hour, min, 0, 0, time.UTC)
}

func TestParseDurationOnlyForYesterday(t *testing.T) {
	res := nlparse.Parse("yesterday worked on Acme for 2h", now, nlparse.Overrides{})

	require.True(t, res.OK(), res.Err.Message())
	assert.Equal(t, model.Work, res.Category)
	assert.Equal(t, at(21, 0, 0), *res.Date)
	require.NotNil(t, res.DurationSeconds)
	assert.EqualValues(t, 7200, *res.DurationSeconds)
	assert.True(t, res.GuessedStart)
	assert.Equal(t, at(21, 9, 0), *res.StartAt)
	assert.Equal(t, at(21, 11, 0), *res.EndAt)
	assert.Equal(t, "Acme", res.ProjectCandidate)
}

func TestParseExplicitRange(t *testing.T) {
	res := nlparse.Parse("2026-02-20 break from 09:00 to 09:30", now, nlparse.Overrides{})

	require.True(t, res.OK(), res.Err.Message())
	assert.Equal(t, model.Break, res.Category)
	assert.Equal(t, at(20, 0, 0), *res.Date)
	assert.Equal(t, at(20, 9, 0), *res.StartAt)
	assert.Equal(t, at(20, 9, 30), *res.EndAt)
	assert.False(t, res.GuessedStart)
}

func TestParseRangeIgnoresDuration(t *testing.T) {
	res := nlparse.Parse("worked on Acme from 09:00 to 11:00 for 5h", now, nlparse.Overrides{})

	require.True(t, res.OK())
	assert.Equal(t, at(22, 9, 0), *res.StartAt)
	assert.Equal(t, at(22, 11, 0), *res.EndAt)
	assert.False(t, res.GuessedStart)
	require.NotNil(t, res.DurationSeconds)
	assert.EqualValues(t, 5*3600, *res.DurationSeconds)
}

func TestParseDurationAccumulation(t *testing.T) {
	tests := []struct {
		text string
		want int64
	}{
		{"for 1h 30m", 5400},
		{"for 90m", 5400},
		{"for 1h30m", 5400},
		{"for 1.5 hours", 5400},
		{"for 1:30", 5400},
		{"2 hrs 15 mins 30 secs", 8130},
		{"45 seconds of review", 45},
		{"30m then another 30 min", 3600},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			res := nlparse.Parse(tt.text, now, nlparse.Overrides{})
			require.NotNil(t, res.DurationSeconds)
			assert.Equal(t, tt.want, *res.DurationSeconds)
		})
	}
}

func TestParseNoDurationToken(t *testing.T) {
	res := nlparse.Parse("worked on 5 sessions of Acme", now, nlparse.Overrides{})

	assert.Equal(t, nlparse.TimeUnresolved, res.Err)
	assert.Nil(t, res.DurationSeconds)
	assert.Equal(t, "5 sessions of Acme", res.ProjectCandidate)
}

func TestParseRelativeDates(t *testing.T) {
	tests := []struct {
		text string
		want time.Time
	}{
		{"yesterday for 1h", at(21, 0, 0)},
		{"Today for 1h", at(22, 0, 0)},
		{"tomorrow for 1h", at(23, 0, 0)},
		{"for 1h on 2026-02-10", at(10, 0, 0)},
		{"for 1h", at(22, 0, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			res := nlparse.Parse(tt.text, now, nlparse.Overrides{})
			require.NotNil(t, res.Date)
			assert.Equal(t, tt.want, *res.Date)
		})
	}
}

func TestParseEmbeddedDateIsNotARange(t *testing.T) {
	res := nlparse.Parse("2026-02-20 for 2h", now, nlparse.Overrides{})

	require.True(t, res.OK())
	assert.True(t, res.GuessedStart)
	assert.Equal(t, at(20, 9, 0), *res.StartAt)
	assert.Equal(t, at(20, 11, 0), *res.EndAt)
}

func TestParseTimePatterns(t *testing.T) {
	tests := []struct {
		text       string
		start, end time.Time
	}{
		{"at 14:00 for 45m", at(22, 14, 0), at(22, 14, 45)},
		{"review to 17:00 for 2h", at(22, 15, 0), at(22, 17, 0)},
		{"10:00-12:30 meeting", at(22, 10, 0), at(22, 12, 30)},
		{"from 9am to 11am", at(22, 9, 0), at(22, 11, 0)},
		{"from 1pm - 2:15pm", at(22, 13, 0), at(22, 14, 15)},
		{"at 8 to 9", at(22, 8, 0), at(22, 9, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			res := nlparse.Parse(tt.text, now, nlparse.Overrides{})
			require.True(t, res.OK(), res.Err.Message())
			assert.Equal(t, tt.start, *res.StartAt)
			assert.Equal(t, tt.end, *res.EndAt)
			assert.False(t, res.GuessedStart)
		})
	}
}

func TestParseOverridesWin(t *testing.T) {
	brk := model.Break
	res := nlparse.Parse("worked on Acme from 09:00 to 11:00 yesterday", now, nlparse.Overrides{
		Category: &brk,
		Date:     "2026-02-18",
		Start:    "10:00",
	})

	require.True(t, res.OK(), res.Err.Message())
	assert.Equal(t, model.Break, res.Category)
	assert.Equal(t, at(18, 0, 0), *res.Date)
	// start from the override, end still from the text.
	assert.Equal(t, at(18, 10, 0), *res.StartAt)
	assert.Equal(t, at(18, 11, 0), *res.EndAt)
}

func TestParseDurationOverrideDerivesStart(t *testing.T) {
	res := nlparse.Parse("worked on Acme to 11:00 for 3h", now, nlparse.Overrides{Duration: "1:15"})

	require.True(t, res.OK(), res.Err.Message())
	assert.EqualValues(t, 4500, *res.DurationSeconds)
	assert.Equal(t, at(22, 9, 45), *res.StartAt)
	assert.Equal(t, at(22, 11, 0), *res.EndAt)
}

func TestParseOverrideDurationOnly(t *testing.T) {
	res := nlparse.Parse("support tickets", now, nlparse.Overrides{Start: "10:00", Duration: "90m"})

	require.True(t, res.OK())
	assert.Equal(t, at(22, 10, 0), *res.StartAt)
	assert.Equal(t, at(22, 11, 30), *res.EndAt)
}

func TestParseDateUnresolved(t *testing.T) {
	for _, tc := range []struct {
		name string
		text string
		o    nlparse.Overrides
	}{
		{"bad override", "worked on Acme for 1h", nlparse.Overrides{Date: "someday"}},
		{"bad embedded date", "2026-13-45 worked on Acme for 1h", nlparse.Overrides{}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			res := nlparse.Parse("  "+tc.text+"  ", now, tc.o)
			assert.Equal(t, nlparse.DateUnresolved, res.Err)
			assert.Nil(t, res.Date)
			assert.Nil(t, res.StartAt)
			assert.Nil(t, res.EndAt)
			assert.Nil(t, res.DurationSeconds)
			assert.Empty(t, res.ProjectCandidate)
			assert.Equal(t, tc.text, res.Description)
			assert.Contains(t, res.Err.Message(), "Unable to determine a date")
		})
	}
}

func TestParseTerminalErrorsKeepPartialFields(t *testing.T) {
	tests := []struct {
		text string
		want nlparse.ErrorKind
	}{
		{"worked on Acme", nlparse.TimeUnresolved},
		{"worked on Acme from 25:00 to 11:00", nlparse.DerivationFailed},
		{"worked on Acme from 11:00 to 09:00", nlparse.OrderingInvalid},
		{"worked on Acme from 10:00 to 10:00", nlparse.OrderingInvalid},
		{"worked on Acme at 23:00 for 2h", nlparse.CrossMidnight},
	}
	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			res := nlparse.Parse(tt.text, now, nlparse.Overrides{})
			assert.Equal(t, tt.want, res.Err)
			assert.False(t, res.OK())
			assert.NotEmpty(t, res.Err.Message())
			assert.Nil(t, res.StartAt)
			assert.Nil(t, res.EndAt)
			require.NotNil(t, res.Date)
			assert.Equal(t, model.Work, res.Category)
			assert.Equal(t, "Acme", res.ProjectCandidate)
		})
	}
}

func TestParseProjectCandidate(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{`worked on "Big Client, Inc" for 1h`, "Big Client, Inc"},
		{"working on website redesign from 9 to 10", "website redesign"},
		{"yesterday worked on Acme from 09:00 to 11:00", "Acme"},
		{"on Beta at 10:00 for 1h", "Beta"},
		{"deep work 09:00-10:00", ""},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			res := nlparse.Parse(tt.text, now, nlparse.Overrides{})
			assert.Equal(t, tt.want, res.ProjectCandidate)
		})
	}
}

func TestParseNormalizesWhitespace(t *testing.T) {
	res := nlparse.Parse("  lunch \t break\n for   30m ", now, nlparse.Overrides{})

	assert.Equal(t, "lunch break for 30m", res.Description)
	assert.Equal(t, model.Break, res.Category)
}

func TestParseSuccessInvariants(t *testing.T) {
	inputs := []string{
		"yesterday worked on Acme for 2h",
		"from 08:15 to 17:45",
		"at 7am for 3h 20m",
		"to 12:00 for 30 min",
		"lunch 12:00-12:45",
	}
	for _, in := range inputs {
		res := nlparse.Parse(in, now, nlparse.Overrides{})
		require.True(t, res.OK(), in)
		assert.True(t, res.EndAt.After(*res.StartAt), in)
		assert.Equal(t, res.StartAt.YearDay(), res.EndAt.YearDay(), in)
	}
}
