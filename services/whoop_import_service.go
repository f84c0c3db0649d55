package services

import (
	"context"
	"database/sql/driver"
	"errors"
	"io"
	"net"
	"syscall"
	"time"

	"github.com/jkor2/lifeof/models"
	"github.com/jkor2/lifeof/utils"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultChunkSize   = 200
	defaultRetryBudget = 3 // total attempts per chunk
	defaultBaseDelay   = 500 * time.Millisecond
	defaultJitter      = 250 * time.Millisecond

	pathRecovery = "/recovery"
	pathSleep    = "/activity/sleep"
	pathWorkout  = "/activity/workout"
)

// WhoopImportService runs the idempotent sync pipeline: fetch, normalize,
// then upsert in bounded chunks. A chunk that keeps failing is reported and
// skipped; it never aborts the rest of the import.
type WhoopImportService struct {
	db     *gorm.DB
	client *WhoopClient
	hub    *SyncHub
	log    zerolog.Logger

	chunkSize   int
	retryBudget int
	baseDelay   time.Duration
	jitter      time.Duration
}

func NewWhoopImportService(db *gorm.DB, client *WhoopClient, hub *SyncHub, log zerolog.Logger) *WhoopImportService {
	return &WhoopImportService{
		db:          db,
		client:      client,
		hub:         hub,
		log:         log.With().Str("service", "whoop_import").Logger(),
		chunkSize:   defaultChunkSize,
		retryBudget: defaultRetryBudget,
		baseDelay:   defaultBaseDelay,
		jitter:      defaultJitter,
	}
}

// isTransient separates retryable I/O failures (dropped connections) from
// permanent ones (constraint violations, bad input).
func isTransient(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE)
}

type ChunkResult struct {
	Index    int    `json:"index"`
	Rows     int    `json:"rows"`
	Attempts int    `json:"attempts"`
	Error    string `json:"error,omitempty"`
}

type TableSummary struct {
	Table        string        `json:"table"`
	Total        int           `json:"total"`
	Upserted     int           `json:"upserted"`
	FailedChunks int           `json:"failed_chunks"`
	Chunks       []ChunkResult `json:"chunks,omitempty"`
}

// upsertChunk writes one half-open row range [start, end). Injected so tests
// can exercise the retry machinery with a fake store.
type upsertChunk func(ctx context.Context, start, end int) error

// runBatches drives the per-chunk state machine: pending -> sending ->
// success, or retrying -> sending while the budget lasts, then failed.
// Failed chunks are terminal for themselves only.
func (s *WhoopImportService) runBatches(ctx context.Context, table string, total int, upsert upsertChunk) TableSummary {
	sum := TableSummary{Table: table, Total: total}

	for start := 0; start < total; start += s.chunkSize {
		end := start + s.chunkSize
		if end > total {
			end = total
		}
		idx := start / s.chunkSize

		attempts := 0
		backoff := retry.WithMaxRetries(uint64(s.retryBudget-1),
			retry.WithJitter(s.jitter, retry.NewExponential(s.baseDelay)))

		err := retry.Do(ctx, backoff, func(ctx context.Context) error {
			attempts++
			err := upsert(ctx, start, end)
			if err != nil && isTransient(err) {
				s.log.Warn().Err(err).Str("table", table).Int("chunk", idx).
					Int("attempt", attempts).Msg("transient failure, will retry")
				return retry.RetryableError(err)
			}
			return err
		})

		cr := ChunkResult{Index: idx, Rows: end - start, Attempts: attempts}
		if err != nil {
			cr.Error = err.Error()
			sum.FailedChunks++
			s.log.Error().Err(err).Str("table", table).Int("chunk", idx).
				Msg("chunk failed, continuing with next")
		} else {
			sum.Upserted += end - start
		}
		sum.Chunks = append(sum.Chunks, cr)

		if s.hub != nil {
			s.hub.Broadcast(map[string]any{
				"kind":     "sync.progress",
				"table":    table,
				"done":     end,
				"total":    total,
				"failed":   sum.FailedChunks,
				"attempts": attempts,
			})
		}
	}
	return sum
}

// dedupe keeps the first occurrence per natural key so a single upsert
// statement never touches the same row twice.
func dedupe[T any](rows []T, key func(T) string) []T {
	seen := make(map[string]struct{}, len(rows))
	out := rows[:0]
	for _, r := range rows {
		k := key(r)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}

func (s *WhoopImportService) upsertRecovery(ctx context.Context, rows []models.WhoopRecovery) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "cycle_id"}},
		UpdateAll: true,
	}).Create(&rows).Error
}

func (s *WhoopImportService) upsertSleep(ctx context.Context, rows []models.WhoopSleep) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "sleep_id"}},
		UpdateAll: true,
	}).Create(&rows).Error
}

func (s *WhoopImportService) upsertWorkouts(ctx context.Context, rows []models.WhoopWorkout) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "workout_id"}},
		UpdateAll: true,
	}).Create(&rows).Error
}

type SyncReport struct {
	Recovery    TableSummary `json:"recovery"`
	Sleep       TableSummary `json:"sleep"`
	Workouts    TableSummary `json:"workouts"`
	ArchivedTo  string       `json:"archived_to,omitempty"`
	GeneratedAt time.Time    `json:"generated_at"`
}

// FullSync walks the complete history of all three endpoints, archives the
// raw payloads, then upserts everything. Re-running it against unchanged
// provider data leaves the stored state untouched.
func (s *WhoopImportService) FullSync(ctx context.Context) (*SyncReport, error) {
	const pageSize = 25

	recRaw, err := s.client.FetchAll(ctx, pathRecovery, pageSize)
	if err != nil {
		return nil, err
	}
	sleepRaw, err := s.client.FetchAll(ctx, pathSleep, pageSize)
	if err != nil {
		return nil, err
	}
	workoutRaw, err := s.client.FetchAll(ctx, pathWorkout, pageSize)
	if err != nil {
		return nil, err
	}

	report := &SyncReport{GeneratedAt: time.Now().UTC()}

	location, err := utils.ArchiveJSON("whoop_full_data", map[string]any{
		"recovery": recRaw,
		"sleep":    sleepRaw,
		"workouts": workoutRaw,
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("raw archive failed, continuing with import")
	} else {
		report.ArchivedTo = location
	}

	recovery := make([]models.WhoopRecovery, 0, len(recRaw))
	for _, r := range recRaw {
		recovery = append(recovery, normalizeRecovery(r))
	}
	recovery = dedupe(recovery, func(r models.WhoopRecovery) string { return r.CycleID })

	sleep := make([]models.WhoopSleep, 0, len(sleepRaw))
	for _, r := range sleepRaw {
		sleep = append(sleep, normalizeSleep(r))
	}
	sleep = dedupe(sleep, func(r models.WhoopSleep) string { return r.SleepID })

	workouts := make([]models.WhoopWorkout, 0, len(workoutRaw))
	for _, r := range workoutRaw {
		workouts = append(workouts, normalizeWorkout(r))
	}
	workouts = dedupe(workouts, func(r models.WhoopWorkout) string { return r.WorkoutID })

	report.Recovery = s.runBatches(ctx, "whoop_recovery", len(recovery),
		func(ctx context.Context, start, end int) error {
			return s.upsertRecovery(ctx, recovery[start:end])
		})
	report.Sleep = s.runBatches(ctx, "whoop_sleep", len(sleep),
		func(ctx context.Context, start, end int) error {
			return s.upsertSleep(ctx, sleep[start:end])
		})
	report.Workouts = s.runBatches(ctx, "whoop_workouts", len(workouts),
		func(ctx context.Context, start, end int) error {
			return s.upsertWorkouts(ctx, workouts[start:end])
		})

	s.log.Info().
		Int("recovery", report.Recovery.Upserted).
		Int("sleep", report.Sleep.Upserted).
		Int("workouts", report.Workouts.Upserted).
		Msg("full WHOOP sync complete")
	return report, nil
}

// SyncLatest pulls the single most recent record per entity. Recovery is
// skipped when a row for the same record_date already exists; sleep and
// workouts are upserted by natural key.
func (s *WhoopImportService) SyncLatest(ctx context.Context) (map[string]string, error) {
	results := make(map[string]string, 3)

	recRaw, err := s.client.FetchLatest(ctx, pathRecovery, 1)
	switch {
	case err != nil:
		var authErr *AuthError
		if errors.As(err, &authErr) {
			return nil, err
		}
		results["recovery"] = "fetch failed: " + err.Error()
	case len(recRaw) == 0:
		results["recovery"] = "no new records"
	default:
		row := normalizeRecovery(recRaw[0])
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.WhoopRecovery{}).
			Where("record_date = ?", row.RecordDate).Count(&count).Error; err != nil {
			results["recovery"] = "lookup failed: " + err.Error()
		} else if count > 0 {
			results["recovery"] = "recovery for " + row.RecordDate + " already exists, skipped"
		} else if err := s.upsertRecovery(ctx, []models.WhoopRecovery{row}); err != nil {
			results["recovery"] = "insert failed: " + err.Error()
		} else {
			results["recovery"] = "inserted latest record"
		}
	}

	sleepRaw, err := s.client.FetchLatest(ctx, pathSleep, 1)
	switch {
	case err != nil:
		results["sleep"] = "fetch failed: " + err.Error()
	case len(sleepRaw) == 0:
		results["sleep"] = "no new records"
	default:
		row := normalizeSleep(sleepRaw[0])
		if err := s.upsertSleep(ctx, []models.WhoopSleep{row}); err != nil {
			results["sleep"] = "upsert failed: " + err.Error()
		} else {
			results["sleep"] = "upserted latest record"
		}
	}

	workoutRaw, err := s.client.FetchLatest(ctx, pathWorkout, 1)
	switch {
	case err != nil:
		results["workouts"] = "fetch failed: " + err.Error()
	case len(workoutRaw) == 0:
		results["workouts"] = "no new records"
	default:
		row := normalizeWorkout(workoutRaw[0])
		if err := s.upsertWorkouts(ctx, []models.WhoopWorkout{row}); err != nil {
			results["workouts"] = "upsert failed: " + err.Error()
		} else {
			results["workouts"] = "upserted latest record"
		}
	}

	return results, nil
}
