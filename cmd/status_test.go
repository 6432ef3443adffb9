package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Tiliavir/timescribe/internal/model"
)

func TestTotalsByCategoryCountsRunningTimerUpToNow(t *testing.T) {
	start := at(22, 9, 0)
	end := at(22, 8, 45)
	intervals := []model.Interval{
		{Category: model.Break, StartedAt: at(22, 8, 0), EndedAt: &end, LastActivityAt: &end},
		{Category: model.Work, StartedAt: start, LastActivityAt: &start, Source: timerSource},
	}

	totals := totalsByCategory(intervals, at(22, 11, 0))

	assert.Equal(t, int64(2*time.Hour/time.Second), totals[model.Work])
	assert.Equal(t, int64(45*time.Minute/time.Second), totals[model.Break])
}

func TestTotalsByCategoryClipsTimerFromYesterday(t *testing.T) {
	start := at(21, 22, 0)
	intervals := []model.Interval{
		{Category: model.Work, StartedAt: start, LastActivityAt: &start},
	}

	totals := totalsByCategory(intervals, at(22, 1, 0))

	assert.Equal(t, int64(3600), totals[model.Work])
}
