package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/somaedu/soma-backend/internal/config"
)

const (
	StatsBatchSize    = 50
	StatsBatchTimeout = 2 * time.Second
	StatsPollTimeout  = 1 * time.Second
)

// StatsWorker consumes the scores queue and folds each score event into the
// per-quiz aggregate row. Aggregates power tutor dashboards without scanning
// the submissions table.
type StatsWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewStatsWorker creates a new StatsWorker.
func NewStatsWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *StatsWorker {
	return &StatsWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "stats_worker").Logger(),
	}
}

type scorePayload struct {
	QuizID    string  `json:"quiz_id"`
	StudentID int     `json:"student_id"`
	Score     float64 `json:"score"`
	MaxScore  int     `json:"max_score"`
}

// Start begins the worker loop with batching. Call in a goroutine.
func (w *StatsWorker) Start(ctx context.Context) {
	w.log.Info().Msg("StatsWorker started")

	batch := make([]*scorePayload, 0, StatsBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= StatsBatchSize || time.Since(lastFlush) >= StatsBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, StatsPollTimeout, config.WorkerKey.PersistScoresQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var p scorePayload
			if err := json.Unmarshal([]byte(item[1]), &p); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, &p)
		}
	}
}

func (w *StatsWorker) flushSafe(ctx context.Context, batch []*scorePayload) {
	if len(batch) == 0 {
		return
	}

	if err := w.bulkUpsert(ctx, batch); err != nil {
		w.log.Error().Err(err).Msg("Stats upsert failed — requeueing batch")
		for _, p := range batch {
			raw, _ := json.Marshal(p)
			w.rdb.RPush(ctx, config.WorkerKey.PersistScoresQueue, raw)
		}
		time.Sleep(5 * time.Second)
	}
}

// bulkUpsert pre-aggregates the batch per quiz in RAM, then applies every
// quiz's delta with one UNNEST upsert.
func (w *StatsWorker) bulkUpsert(ctx context.Context, batch []*scorePayload) error {
	type delta struct {
		count      int
		totalScore float64
		totalMax   int
	}

	deltas := make(map[uuid.UUID]*delta)
	for _, p := range batch {
		quizID, err := uuid.Parse(p.QuizID)
		if err != nil {
			w.log.Error().Str("quiz_id", p.QuizID).Msg("Dropping event with bad quiz id")
			continue
		}
		d, ok := deltas[quizID]
		if !ok {
			d = &delta{}
			deltas[quizID] = d
		}
		d.count++
		d.totalScore += p.Score
		d.totalMax += p.MaxScore
	}
	if len(deltas) == 0 {
		return nil
	}

	quizIDs := make([]uuid.UUID, 0, len(deltas))
	counts := make([]int, 0, len(deltas))
	scores := make([]float64, 0, len(deltas))
	maxes := make([]int, 0, len(deltas))
	for id, d := range deltas {
		quizIDs = append(quizIDs, id)
		counts = append(counts, d.count)
		scores = append(scores, d.totalScore)
		maxes = append(maxes, d.totalMax)
	}

	query := `
		INSERT INTO quiz_stats (quiz_id, submission_count, total_score, total_max_score, updated_at)
		SELECT u.quiz_id, u.submission_count, u.total_score, u.total_max_score, NOW()
		FROM UNNEST(
			$1::uuid[],
			$2::int[],
			$3::float8[],
			$4::int[]
		) AS u (quiz_id, submission_count, total_score, total_max_score)
		ON CONFLICT (quiz_id) DO UPDATE
		SET submission_count = quiz_stats.submission_count + EXCLUDED.submission_count,
		    total_score = quiz_stats.total_score + EXCLUDED.total_score,
		    total_max_score = quiz_stats.total_max_score + EXCLUDED.total_max_score,
		    updated_at = NOW()
	`

	_, err := w.pool.Exec(ctx, query, quizIDs, counts, scores, maxes)
	return err
}
