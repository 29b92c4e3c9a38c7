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
	"github.com/somaedu/soma-backend/internal/model"
)

const (
	AnswerBatchSize    = 100
	AnswerBatchTimeout = 2 * time.Second
	AnswerPollTimeout  = 1 * time.Second
)

// AnswerWorker consumes the answers queue and bulk-inserts graded answer rows
// into PostgreSQL. The submission row is already durable when answers are
// queued, so this path only fills in per-question detail.
type AnswerWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewAnswerWorker creates a new AnswerWorker.
func NewAnswerWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *AnswerWorker {
	return &AnswerWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "answer_worker").Logger(),
	}
}

// Start begins the worker loop with batching. Call in a goroutine.
func (w *AnswerWorker) Start(ctx context.Context) {
	w.log.Info().Msg("AnswerWorker started")

	batch := make([]*model.SubmissionAnswer, 0, AnswerBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= AnswerBatchSize || time.Since(lastFlush) >= AnswerBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			w.drain(context.Background())
			return

		default:
			item, err := w.rdb.BLPop(ctx, AnswerPollTimeout, config.WorkerKey.PersistAnswersQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var a model.SubmissionAnswer
			if err := json.Unmarshal([]byte(item[1]), &a); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, &a)
		}
	}
}

func (w *AnswerWorker) flushSafe(ctx context.Context, batch []*model.SubmissionAnswer) {
	if len(batch) == 0 {
		return
	}

	if err := w.bulkInsert(ctx, batch); err != nil {
		w.log.Warn().Err(err).Msg("bulk answer insert failed, using fallback")

		for _, a := range batch {
			if err := w.persistSingle(ctx, a); err != nil {
				w.log.Error().Err(err).Msg("persistSingle failed — requeueing")
				raw, _ := json.Marshal(a)
				w.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, raw)
			}
		}
	}
}

// bulkInsert writes the whole batch with one UNNEST statement. Replayed rows
// hit the primary key and are skipped.
func (w *AnswerWorker) bulkInsert(ctx context.Context, batch []*model.SubmissionAnswer) error {
	n := len(batch)

	submissionIDs := make([]uuid.UUID, 0, n)
	questionIDs := make([]uuid.UUID, 0, n)
	selections := make([]string, 0, n)
	corrects := make([]bool, 0, n)
	marks := make([]int, 0, n)

	for _, a := range batch {
		submissionIDs = append(submissionIDs, a.SubmissionID)
		questionIDs = append(questionIDs, a.QuestionID)
		selections = append(selections, a.Selected)
		corrects = append(corrects, a.Correct)
		marks = append(marks, a.MarksAwarded)
	}

	query := `
		INSERT INTO submission_answers (submission_id, question_id, selected, correct, marks_awarded)
		SELECT u.submission_id, u.question_id, u.selected, u.correct, u.marks_awarded
		FROM UNNEST(
			$1::uuid[],
			$2::uuid[],
			$3::text[],
			$4::bool[],
			$5::int[]
		) AS u (submission_id, question_id, selected, correct, marks_awarded)
		ON CONFLICT (submission_id, question_id) DO NOTHING
	`

	_, err := w.pool.Exec(ctx, query, submissionIDs, questionIDs, selections, corrects, marks)
	return err
}

func (w *AnswerWorker) persistSingle(ctx context.Context, a *model.SubmissionAnswer) error {
	_, err := w.pool.Exec(ctx,
		`INSERT INTO submission_answers (submission_id, question_id, selected, correct, marks_awarded)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (submission_id, question_id) DO NOTHING`,
		a.SubmissionID, a.QuestionID, a.Selected, a.Correct, a.MarksAwarded,
	)
	return err
}

// drain processes all remaining items in the queue before shutdown.
func (w *AnswerWorker) drain(ctx context.Context) {
	drained := 0
	for {
		result, err := w.rdb.LPop(ctx, config.WorkerKey.PersistAnswersQueue).Result()
		if err != nil {
			break
		}

		var a model.SubmissionAnswer
		if err := json.Unmarshal([]byte(result), &a); err != nil {
			w.log.Error().Err(err).Msg("Drain unmarshal error")
			continue
		}

		if err := w.persistSingle(ctx, &a); err != nil {
			w.log.Error().Err(err).Msg("Drain persist error")
			w.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, result)
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}
