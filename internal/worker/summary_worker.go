package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/result-portal/internal/config"
	"github.com/stemsi/result-portal/internal/model"
)

const (
	SummaryBatchSize    = 50
	SummaryBatchTimeout = 2 * time.Second
	SummaryPollTimeout  = 1 * time.Second
)

// SummaryWriter persists summaries. Implemented by repository.SummaryRepository.
type SummaryWriter interface {
	BulkUpsert(ctx context.Context, batch []model.RoundSummary) error
	Upsert(ctx context.Context, s model.RoundSummary) error
}

// SummaryQueue pushes freshly reconstructed summaries for asynchronous write-back.
type SummaryQueue struct {
	rdb *redis.Client
}

// NewSummaryQueue creates a new SummaryQueue.
func NewSummaryQueue(rdb *redis.Client) *SummaryQueue {
	return &SummaryQueue{rdb: rdb}
}

// Enqueue adds s to the write-back queue.
func (q *SummaryQueue) Enqueue(ctx context.Context, s model.RoundSummary) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	if err := q.rdb.RPush(ctx, config.WorkerKey.PersistSummariesQueue, raw).Err(); err != nil {
		return fmt.Errorf("enqueue summary: %w", err)
	}
	return nil
}

// SummaryWorker drains the summary queue into the summary store in batches.
type SummaryWorker struct {
	store SummaryWriter
	rdb   *redis.Client
	log   zerolog.Logger
}

func NewSummaryWorker(store SummaryWriter, rdb *redis.Client, log zerolog.Logger) *SummaryWorker {
	return &SummaryWorker{
		store: store,
		rdb:   rdb,
		log:   log.With().Str("component", "summary_worker").Logger(),
	}
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

func (w *SummaryWorker) Start(ctx context.Context) {
	w.log.Info().Msg("SummaryWorker started")

	batch := make([]model.RoundSummary, 0, SummaryBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= SummaryBatchSize || time.Since(lastFlush) >= SummaryBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Int("pending", len(batch)).Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, SummaryPollTimeout, config.WorkerKey.PersistSummariesQueue).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var s model.RoundSummary
			if err := json.Unmarshal([]byte(item[1]), &s); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, s)
		}
	}
}

// ----------------------------------------------------------------
// Batch upsert with single-row fallback
// ----------------------------------------------------------------

func (w *SummaryWorker) flushSafe(ctx context.Context, batch []model.RoundSummary) {
	if len(batch) == 0 {
		return
	}

	batch = dedupeSummaries(batch)
	if err := w.store.BulkUpsert(ctx, batch); err != nil {
		w.log.Warn().Err(err).Int("size", len(batch)).Msg("bulk summary upsert failed, using fallback")

		for _, s := range batch {
			if err := w.store.Upsert(ctx, s); err != nil {
				w.log.Error().Err(err).
					Str("round_id", s.RoundID).
					Str("student_id", s.StudentID).
					Msg("summary upsert failed, requeueing")
				w.requeue(ctx, s)
			}
		}
		return
	}

	w.log.Debug().Int("size", len(batch)).Msg("summaries persisted")
}

func (w *SummaryWorker) requeue(ctx context.Context, s model.RoundSummary) {
	raw, err := json.Marshal(s)
	if err != nil {
		return
	}
	if err := w.rdb.RPush(ctx, config.WorkerKey.PersistSummariesQueue, raw).Err(); err != nil {
		w.log.Error().Err(err).Msg("requeue failed, summary dropped")
	}
}

// dedupeSummaries keeps the newest summary per (round, student); a single
// INSERT ... ON CONFLICT cannot touch the same row twice.
func dedupeSummaries(batch []model.RoundSummary) []model.RoundSummary {
	type key struct{ round, student string }
	index := make(map[key]int, len(batch))
	out := make([]model.RoundSummary, 0, len(batch))

	for _, s := range batch {
		k := key{s.RoundID, s.StudentID}
		if i, ok := index[k]; ok {
			if !s.ComputedAt.Before(out[i].ComputedAt) {
				out[i] = s
			}
			continue
		}
		index[k] = len(out)
		out = append(out, s)
	}
	return out
}
