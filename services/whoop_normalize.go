package services

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/jkor2/lifeof/models"
)

// Fixed offset applied when deriving record_date from UTC timestamps. This is
// deliberately not a timezone lookup: the boundary never moves with DST, and
// downstream grouping assumes exactly this behaviour.
const recordDateOffset = -5 * time.Hour

// extractLocalDate converts a WHOOP UTC timestamp ("...Z") into the local
// calendar date. Returns "" for missing or unparseable timestamps.
func extractLocalDate(ts string) string {
	if ts == "" {
		return ""
	}
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ""
	}
	return t.UTC().Add(recordDateOffset).Format("2006-01-02")
}

// toStr serializes any scalar as text. Storing metrics as text tolerates
// provider type drift; absent values become the empty string.
func toStr(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// hoursFromMilli converts a millisecond duration to hours rounded to two
// decimals. A missing value counts as zero, so "absent" and "zero" are
// indistinguishable downstream; that matches the stored history.
func hoursFromMilli(v any) string {
	var ms float64
	switch t := v.(type) {
	case json.Number:
		ms, _ = t.Float64()
	case float64:
		ms = t
	}
	hours := math.Round(ms/3600000.0*100) / 100
	return strconv.FormatFloat(hours, 'f', -1, 64)
}

func subMap(m map[string]any, key string) map[string]any {
	sub, _ := m[key].(map[string]any)
	return sub
}

// normalizeRecovery flattens one recovery record. record_date comes from the
// record's creation timestamp, unlike sleep and workouts.
func normalizeRecovery(rec map[string]any) models.WhoopRecovery {
	score := subMap(rec, "score")
	return models.WhoopRecovery{
		CycleID:          toStr(rec["cycle_id"]),
		RecoveryScore:    toStr(score["recovery_score"]),
		RestingHeartRate: toStr(score["resting_heart_rate"]),
		HrvRmssdMilli:    toStr(score["hrv_rmssd_milli"]),
		Spo2Percentage:   toStr(score["spo2_percentage"]),
		SkinTempCelsius:  toStr(score["skin_temp_celsius"]),
		RecordDate:       extractLocalDate(toStr(rec["created_at"])),
	}
}

// normalizeSleep flattens one sleep record, keyed by provider sleep id.
// Stage durations arrive in milliseconds and are stored as hours.
func normalizeSleep(rec map[string]any) models.WhoopSleep {
	score := subMap(rec, "score")
	stage := subMap(score, "stage_summary")
	return models.WhoopSleep{
		SleepID:                    toStr(rec["id"]),
		CycleID:                    toStr(rec["cycle_id"]),
		Start:                      toStr(rec["start"]),
		End:                        toStr(rec["end"]),
		SleepPerformancePercentage: toStr(score["sleep_performance_percentage"]),
		SleepEfficiencyPercentage:  toStr(score["sleep_efficiency_percentage"]),
		RemSleepHours:              hoursFromMilli(stage["total_rem_sleep_time_milli"]),
		DeepSleepHours:             hoursFromMilli(stage["total_slow_wave_sleep_time_milli"]),
		RespiratoryRate:            toStr(score["respiratory_rate"]),
		RecordDate:                 extractLocalDate(toStr(rec["end"])),
	}
}

// normalizeWorkout flattens one workout record, keyed by provider workout id.
func normalizeWorkout(rec map[string]any) models.WhoopWorkout {
	score := subMap(rec, "score")
	return models.WhoopWorkout{
		WorkoutID:         toStr(rec["id"]),
		SportName:         toStr(rec["sport_name"]),
		Strain:            toStr(score["strain"]),
		AverageHeartRate:  toStr(score["average_heart_rate"]),
		MaxHeartRate:      toStr(score["max_heart_rate"]),
		Kilojoule:         toStr(score["kilojoule"]),
		DistanceMeter:     toStr(score["distance_meter"]),
		AltitudeGainMeter: toStr(score["altitude_gain_meter"]),
		RecordDate:        extractLocalDate(toStr(rec["end"])),
	}
}
