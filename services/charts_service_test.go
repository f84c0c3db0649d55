package services

import (
	"context"
	"testing"

	"github.com/jkor2/lifeof/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeFloat(t *testing.T) {
	assert.Nil(t, safeFloat(""))
	assert.Nil(t, safeFloat("n/a"))
	if v := safeFloat("67.5"); assert.NotNil(t, v) {
		assert.InDelta(t, 67.5, *v, 1e-9)
	}
}

func TestAvgSkipsMissingValues(t *testing.T) {
	a, b := 10.0, 20.335
	if m := avg([]*float64{&a, nil, &b}); assert.NotNil(t, m) {
		assert.InDelta(t, 15.17, *m, 1e-9)
	}
	assert.Nil(t, avg([]*float64{nil, nil}))
	assert.Nil(t, avg(nil))
}

func TestTotalSleepHours(t *testing.T) {
	h := totalSleepHours("2025-11-08T23:00:00Z", "2025-11-09T07:15:00Z")
	require.NotNil(t, h)
	assert.InDelta(t, 8.25, *h, 1e-9)

	assert.Nil(t, totalSleepHours("garbage", "2025-11-09T07:15:00Z"))
	assert.Nil(t, totalSleepHours("2025-11-09T07:15:00Z", "2025-11-08T23:00:00Z"))
}

func TestOverviewAggregates(t *testing.T) {
	db := newTestDB(t)
	svc := NewChartsService(db)

	require.NoError(t, db.Create(&[]models.WhoopRecovery{
		{CycleID: "c-1", RecoveryScore: "60", RestingHeartRate: "55", HrvRmssdMilli: "70", RecordDate: "2025-11-07"},
		{CycleID: "c-2", RecoveryScore: "80", RestingHeartRate: "53", HrvRmssdMilli: "90", RecordDate: "2025-11-08"},
		{CycleID: "c-3", RecoveryScore: "90", RecordDate: ""}, // never imported cleanly, excluded
	}).Error)
	require.NoError(t, db.Create(&[]models.WhoopSleep{
		{SleepID: "s-1", SleepEfficiencyPercentage: "92",
			Start: "2025-11-07T23:00:00Z", End: "2025-11-08T07:00:00Z", RecordDate: "2025-11-08"},
		{SleepID: "s-2", SleepEfficiencyPercentage: "88",
			Start: "2025-11-08T23:30:00Z", End: "2025-11-09T06:30:00Z", RecordDate: "2025-11-09"},
	}).Error)
	require.NoError(t, db.Create(&[]models.WhoopWorkout{
		{WorkoutID: "w-1", Strain: "12.5", SportName: "running", RecordDate: "2025-11-08"},
	}).Error)

	out, err := svc.Overview(context.Background())
	require.NoError(t, err)

	require.Len(t, out.Recovery.Trend, 2)
	assert.Equal(t, "2025-11-07", out.Recovery.Trend[0].Date, "trend is ordered by date ascending")
	if v := out.Recovery.Averages["recovery_score"]; assert.NotNil(t, v) {
		assert.InDelta(t, 70, *v, 1e-9)
	}

	require.Len(t, out.Sleep.Trend, 2)
	if v := out.Sleep.Averages["total"]; assert.NotNil(t, v) {
		assert.InDelta(t, 7.5, *v, 1e-9)
	}

	// recovery 70, efficiency 90, strain 12.5:
	// 70*0.4 + 90*0.4 + (20-12.5)*0.2 = 65.5
	require.NotNil(t, out.Longevity.Score)
	assert.InDelta(t, 65.5, *out.Longevity.Score, 1e-9)
	require.Len(t, out.Longevity.Insights, 1)
	assert.Contains(t, out.Longevity.Insights[0], "Good longevity potential")
}

func TestOverviewEmptyTables(t *testing.T) {
	db := newTestDB(t)
	svc := NewChartsService(db)

	out, err := svc.Overview(context.Background())
	require.NoError(t, err)
	assert.Empty(t, out.Recovery.Trend)
	assert.Nil(t, out.Recovery.Averages["recovery_score"])
	assert.Nil(t, out.Longevity.Score)
	assert.Empty(t, out.Longevity.Insights)
}

func TestInsightThresholds(t *testing.T) {
	low := func(v float64) *float64 { return &v }

	rec := recoveryInsights(map[string]*float64{
		"hrv": low(42), "rhr": low(65), "spo2": low(96), "temp": nil,
	})
	assert.Len(t, rec, 2)

	slp := sleepInsights(map[string]*float64{
		"efficiency": low(80), "deep": low(1.4), "total": low(6.5),
	})
	assert.Len(t, slp, 2)

	wkt := workoutInsights(map[string]*float64{"strain": low(16)})
	require.Len(t, wkt, 1)
	assert.Contains(t, wkt[0], "High training load")
}
