package scanner

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/keshon/server-warden/internal/extractor"
	"github.com/keshon/server-warden/internal/storage"
)

// RecommendStore is the persistence surface of the recommendation scanner.
type RecommendStore interface {
	RecommendCursor() (*storage.RecommendCursor, error)
	SetRecommendCursor(cur storage.RecommendCursor) error
	MessageLogBatchAfter(after uint64, limit int) ([]storage.MessageLog, error)
	AppendRecommendation(rec storage.Recommendation) error
}

// RecommendScanner walks the archived message log from a singleton cursor,
// runs the extractor over each message and persists what it finds. The cursor
// advances after every batch, so a crash resumes from the last completed
// batch and never re-scans earlier messages.
type RecommendScanner struct {
	store     RecommendStore
	extract   *extractor.Extractor
	batchSize int
	log       zerolog.Logger
}

func NewRecommendScanner(store RecommendStore, extract *extractor.Extractor, batchSize int, log zerolog.Logger) *RecommendScanner {
	if batchSize <= 0 {
		batchSize = 1000
	}
	return &RecommendScanner{
		store:     store,
		extract:   extract,
		batchSize: batchSize,
		log:       log.With().Str("comp", "recommend-scanner").Logger(),
	}
}

// Run performs one invocation: batches until the log is exhausted (a batch
// shorter than the batch size) or a fetch fails.
func (sc *RecommendScanner) Run(ctx context.Context) error {
	cur := storage.RecommendCursor{}
	if existing, err := sc.store.RecommendCursor(); err != nil {
		return fmt.Errorf("read recommendation cursor: %w", err)
	} else if existing != nil {
		cur = *existing
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		batch, err := sc.store.MessageLogBatchAfter(cur.LastMessageID, sc.batchSize)
		if err != nil {
			// The cursor keeps the last completed batch's value.
			sc.log.Warn().Err(err).Msg("batch fetch failed, ending run")
			return nil
		}
		if len(batch) == 0 {
			break
		}

		found := 0
		for _, m := range batch {
			for _, c := range sc.extract.Extract(m.Content) {
				rec := storage.Recommendation{
					Category:   string(c.Category),
					Title:      c.Title,
					URL:        c.URL,
					Confidence: c.Confidence,
					MessageID:  m.MessageID,
					ChannelID:  m.ChannelID,
					AuthorID:   m.AuthorID,
					Timestamp:  time.Now(),
				}
				if err := sc.store.AppendRecommendation(rec); err != nil {
					sc.log.Warn().Err(err).Str("message", m.MessageID).Msg("recommendation write failed")
					continue
				}
				found++
			}
		}

		cur.ScannedCount += int64(len(batch))
		cur.FoundCount += int64(found)
		if id, err := strconv.ParseUint(batch[len(batch)-1].MessageID, 10, 64); err == nil {
			cur.LastMessageID = id
		}
		cur.LastRun = time.Now()

		if err := sc.store.SetRecommendCursor(cur); err != nil {
			return fmt.Errorf("advance recommendation cursor: %w", err)
		}
		sc.log.Debug().Int("batch", len(batch)).Int("found", found).Uint64("cursor", cur.LastMessageID).Msg("batch processed")

		if len(batch) < sc.batchSize {
			break
		}
	}
	return nil
}
