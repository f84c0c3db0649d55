package services

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/jkor2/lifeof/models"

	"gorm.io/gorm"
)

type ChartsService struct{ db *gorm.DB }

func NewChartsService(db *gorm.DB) *ChartsService { return &ChartsService{db: db} }

// safeFloat parses a text metric; nil means missing or unparseable.
func safeFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

// avg returns the mean of the non-nil values rounded to two decimals.
func avg(values []*float64) *float64 {
	var sum float64
	var n int
	for _, v := range values {
		if v != nil {
			sum += *v
			n++
		}
	}
	if n == 0 {
		return nil
	}
	m := math.Round(sum/float64(n)*100) / 100
	return &m
}

type RecoveryPoint struct {
	Date          string   `json:"date"`
	RecoveryScore *float64 `json:"recovery_score"`
	RHR           *float64 `json:"rhr"`
	HRV           *float64 `json:"hrv"`
	SpO2          *float64 `json:"spo2"`
	Temp          *float64 `json:"temp"`
}

type SleepPoint struct {
	Date        string   `json:"date"`
	Performance *float64 `json:"performance"`
	Efficiency  *float64 `json:"efficiency"`
	REM         *float64 `json:"rem"`
	Deep        *float64 `json:"deep"`
	Total       *float64 `json:"total"`
	RespRate    *float64 `json:"resp_rate"`
}

type WorkoutPoint struct {
	Date         string   `json:"date"`
	Strain       *float64 `json:"strain"`
	AvgHR        *float64 `json:"avg_hr"`
	MaxHR        *float64 `json:"max_hr"`
	Distance     *float64 `json:"distance"`
	AltitudeGain *float64 `json:"altitude_gain"`
	Energy       *float64 `json:"energy"`
	Sport        string   `json:"sport"`
}

type ChartSection[P any] struct {
	Trend    []P                 `json:"trend"`
	Averages map[string]*float64 `json:"averages"`
	Insights []string            `json:"insights"`
}

type ChartsOverview struct {
	Recovery ChartSection[RecoveryPoint] `json:"recovery"`
	Sleep    ChartSection[SleepPoint]    `json:"sleep"`
	Workouts ChartSection[WorkoutPoint]  `json:"workouts"`
	Longevity struct {
		Score    *float64 `json:"score"`
		Insights []string `json:"insights"`
	} `json:"longevity"`
	GeneratedAt string `json:"generated_at"`
}

// totalSleepHours derives the full sleep duration from the stored start/end
// timestamps.
func totalSleepHours(start, end string) *float64 {
	st, err1 := time.Parse(time.RFC3339, start)
	en, err2 := time.Parse(time.RFC3339, end)
	if err1 != nil || err2 != nil || en.Before(st) {
		return nil
	}
	h := en.Sub(st).Hours()
	return &h
}

// Overview aggregates the three WHOOP tables into trend series, rounded
// averages and rule-of-thumb insights. Read-only.
func (s *ChartsService) Overview(ctx context.Context) (*ChartsOverview, error) {
	out := &ChartsOverview{GeneratedAt: time.Now().UTC().Format(time.RFC3339)}

	var recovery []models.WhoopRecovery
	if err := s.db.WithContext(ctx).
		Where("record_date <> ''").Order("record_date ASC").
		Find(&recovery).Error; err != nil {
		return nil, err
	}
	for _, r := range recovery {
		out.Recovery.Trend = append(out.Recovery.Trend, RecoveryPoint{
			Date:          r.RecordDate,
			RecoveryScore: safeFloat(r.RecoveryScore),
			RHR:           safeFloat(r.RestingHeartRate),
			HRV:           safeFloat(r.HrvRmssdMilli),
			SpO2:          safeFloat(r.Spo2Percentage),
			Temp:          safeFloat(r.SkinTempCelsius),
		})
	}
	out.Recovery.Averages = map[string]*float64{
		"recovery_score": avg(collect(out.Recovery.Trend, func(p RecoveryPoint) *float64 { return p.RecoveryScore })),
		"rhr":            avg(collect(out.Recovery.Trend, func(p RecoveryPoint) *float64 { return p.RHR })),
		"hrv":            avg(collect(out.Recovery.Trend, func(p RecoveryPoint) *float64 { return p.HRV })),
		"spo2":           avg(collect(out.Recovery.Trend, func(p RecoveryPoint) *float64 { return p.SpO2 })),
		"temp":           avg(collect(out.Recovery.Trend, func(p RecoveryPoint) *float64 { return p.Temp })),
	}
	out.Recovery.Insights = recoveryInsights(out.Recovery.Averages)

	var sleep []models.WhoopSleep
	if err := s.db.WithContext(ctx).
		Where("record_date <> ''").Order("record_date ASC").
		Find(&sleep).Error; err != nil {
		return nil, err
	}
	for _, r := range sleep {
		out.Sleep.Trend = append(out.Sleep.Trend, SleepPoint{
			Date:        r.RecordDate,
			Performance: safeFloat(r.SleepPerformancePercentage),
			Efficiency:  safeFloat(r.SleepEfficiencyPercentage),
			REM:         safeFloat(r.RemSleepHours),
			Deep:        safeFloat(r.DeepSleepHours),
			Total:       totalSleepHours(r.Start, r.End),
			RespRate:    safeFloat(r.RespiratoryRate),
		})
	}
	out.Sleep.Averages = map[string]*float64{
		"performance": avg(collect(out.Sleep.Trend, func(p SleepPoint) *float64 { return p.Performance })),
		"efficiency":  avg(collect(out.Sleep.Trend, func(p SleepPoint) *float64 { return p.Efficiency })),
		"rem":         avg(collect(out.Sleep.Trend, func(p SleepPoint) *float64 { return p.REM })),
		"deep":        avg(collect(out.Sleep.Trend, func(p SleepPoint) *float64 { return p.Deep })),
		"total":       avg(collect(out.Sleep.Trend, func(p SleepPoint) *float64 { return p.Total })),
		"resp_rate":   avg(collect(out.Sleep.Trend, func(p SleepPoint) *float64 { return p.RespRate })),
	}
	out.Sleep.Insights = sleepInsights(out.Sleep.Averages)

	var workouts []models.WhoopWorkout
	if err := s.db.WithContext(ctx).
		Where("record_date <> ''").Order("record_date ASC").
		Find(&workouts).Error; err != nil {
		return nil, err
	}
	for _, r := range workouts {
		out.Workouts.Trend = append(out.Workouts.Trend, WorkoutPoint{
			Date:         r.RecordDate,
			Strain:       safeFloat(r.Strain),
			AvgHR:        safeFloat(r.AverageHeartRate),
			MaxHR:        safeFloat(r.MaxHeartRate),
			Distance:     safeFloat(r.DistanceMeter),
			AltitudeGain: safeFloat(r.AltitudeGainMeter),
			Energy:       safeFloat(r.Kilojoule),
			Sport:        r.SportName,
		})
	}
	out.Workouts.Averages = map[string]*float64{
		"strain":        avg(collect(out.Workouts.Trend, func(p WorkoutPoint) *float64 { return p.Strain })),
		"avg_hr":        avg(collect(out.Workouts.Trend, func(p WorkoutPoint) *float64 { return p.AvgHR })),
		"distance":      avg(collect(out.Workouts.Trend, func(p WorkoutPoint) *float64 { return p.Distance })),
		"altitude_gain": avg(collect(out.Workouts.Trend, func(p WorkoutPoint) *float64 { return p.AltitudeGain })),
		"energy":        avg(collect(out.Workouts.Trend, func(p WorkoutPoint) *float64 { return p.Energy })),
	}
	out.Workouts.Insights = workoutInsights(out.Workouts.Averages)

	rec := out.Recovery.Averages["recovery_score"]
	eff := out.Sleep.Averages["efficiency"]
	strain := out.Workouts.Averages["strain"]
	if rec != nil && eff != nil && strain != nil {
		score := math.Round((*rec*0.4+*eff*0.4+(20-*strain)*0.2)*10) / 10
		out.Longevity.Score = &score
		switch {
		case score > 80:
			out.Longevity.Insights = append(out.Longevity.Insights,
				"Excellent physiological balance, maintain this mix.")
		case score > 60:
			out.Longevity.Insights = append(out.Longevity.Insights,
				"Good longevity potential, improve sleep for optimal performance.")
		default:
			out.Longevity.Insights = append(out.Longevity.Insights,
				"Fatigue warning, strain outweighs recovery capacity.")
		}
	}

	return out, nil
}

func collect[P any](trend []P, pick func(P) *float64) []*float64 {
	out := make([]*float64, 0, len(trend))
	for _, p := range trend {
		out = append(out, pick(p))
	}
	return out
}

func recoveryInsights(a map[string]*float64) []string {
	var out []string
	if v := a["hrv"]; v != nil && *v < 50 {
		out = append(out, "Low HRV trend, potential stress or overtraining.")
	}
	if v := a["rhr"]; v != nil && *v > 60 {
		out = append(out, "Elevated RHR, body still recovering from workload.")
	}
	if v := a["spo2"]; v != nil && *v < 95 {
		out = append(out, "Slight drop in SpO2 levels, prioritize breathing quality.")
	}
	if v := a["temp"]; v != nil && *v > 36.8 {
		out = append(out, "Skin temperature elevated, possible early fatigue or illness.")
	}
	return out
}

func sleepInsights(a map[string]*float64) []string {
	var out []string
	if v := a["efficiency"]; v != nil && *v < 85 {
		out = append(out, "Sleep efficiency below optimal, maintain a consistent bedtime.")
	}
	if v := a["deep"]; v != nil && *v < 1.0 {
		out = append(out, "Low deep sleep, reduce stimulants and screens before bed.")
	}
	if v := a["resp_rate"]; v != nil && *v > 18 {
		out = append(out, "Elevated respiratory rate, possible signs of poor recovery.")
	}
	if v := a["total"]; v != nil && *v < 7 {
		out = append(out, "Average sleep below 7 hours, aim for 7-8 hours nightly.")
	}
	if v := a["rem"]; v != nil && *v < 1.5 {
		out = append(out, "Low REM sleep, may indicate mental or emotional fatigue.")
	}
	return out
}

func workoutInsights(a map[string]*float64) []string {
	var out []string
	if v := a["strain"]; v != nil {
		if *v > 15 {
			out = append(out, "High training load, ensure recovery and proper hydration.")
		} else if *v < 10 {
			out = append(out, "Light training trend, could add higher intensity sessions.")
		}
	}
	if v := a["distance"]; v != nil && *v < 3000 {
		out = append(out, "Low weekly distance, aim for longer endurance sessions.")
	}
	if v := a["energy"]; v != nil && *v > 2000 {
		out = append(out, "Strong energy output trend, keep balancing with rest.")
	}
	return out
}
