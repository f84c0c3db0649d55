package models

import "time"

// Single-row WHOOP credential bundle, overwritten wholesale on every refresh.
// ExpiresAt is always recomputed as now + expires_in when the row is saved.
type WhoopToken struct {
	ID           uint      `gorm:"primaryKey" json:"-"`
	AccessToken  string    `gorm:"type:text" json:"access_token"`
	RefreshToken string    `gorm:"type:text" json:"refresh_token"`
	ExpiresIn    int       `json:"expires_in"`
	ExpiresAt    time.Time `json:"expires_at"`
	Scope        string    `json:"scope"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// WHOOP metric rows keep every value as text so provider schema drift
// (ints becoming floats, nulls appearing) never breaks an import.
// RecordDate is the fixed-offset local calendar date used for grouping.

type WhoopRecovery struct {
	ID               uint   `gorm:"primaryKey" json:"-"`
	CycleID          string `gorm:"size:64;uniqueIndex;not null" json:"cycle_id"`
	RecoveryScore    string `json:"recovery_score"`
	RestingHeartRate string `json:"resting_heart_rate"`
	HrvRmssdMilli    string `json:"hrv_rmssd_milli"`
	Spo2Percentage   string `json:"spo2_percentage"`
	SkinTempCelsius  string `json:"skin_temp_celsius"`
	RecordDate       string `gorm:"size:10;index" json:"record_date"`
}

func (WhoopRecovery) TableName() string { return "whoop_recovery" }

type WhoopSleep struct {
	ID                         uint   `gorm:"primaryKey" json:"-"`
	SleepID                    string `gorm:"size:64;uniqueIndex;not null" json:"sleep_id"`
	CycleID                    string `gorm:"size:64" json:"cycle_id"`
	Start                      string `json:"start"`
	End                        string `json:"end"`
	SleepPerformancePercentage string `json:"sleep_performance_percentage"`
	SleepEfficiencyPercentage  string `json:"sleep_efficiency_percentage"`
	RemSleepHours              string `json:"rem_sleep_hours"`
	DeepSleepHours             string `json:"deep_sleep_hours"`
	RespiratoryRate            string `json:"respiratory_rate"`
	RecordDate                 string `gorm:"size:10;index" json:"record_date"`
}

func (WhoopSleep) TableName() string { return "whoop_sleep" }

type WhoopWorkout struct {
	ID                uint   `gorm:"primaryKey" json:"-"`
	WorkoutID         string `gorm:"size:64;uniqueIndex;not null" json:"workout_id"`
	SportName         string `json:"sport_name"`
	Strain            string `json:"strain"`
	AverageHeartRate  string `json:"average_heart_rate"`
	MaxHeartRate      string `json:"max_heart_rate"`
	Kilojoule         string `json:"kilojoule"`
	DistanceMeter     string `json:"distance_meter"`
	AltitudeGainMeter string `json:"altitude_gain_meter"`
	RecordDate        string `gorm:"size:10;index" json:"record_date"`
}

func (WhoopWorkout) TableName() string { return "whoop_workouts" }
