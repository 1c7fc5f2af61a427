package annotate

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/klauspost/compress/zstd"
	"github.com/route-beacon/community-resolver/internal/metrics"
	"go.uber.org/zap"
)

var zstdEncoder, _ = zstd.NewWriter(nil)

type Writer struct {
	pool        *pgxpool.Pool
	logger      *zap.Logger
	storeRaw    bool
	compressRaw bool
}

func NewWriter(pool *pgxpool.Pool, logger *zap.Logger, storeRaw, compressRaw bool) *Writer {
	return &Writer{
		pool:        pool,
		logger:      logger,
		storeRaw:    storeRaw,
		compressRaw: compressRaw,
	}
}

// FlushBatch inserts a batch of annotations into community_annotations.
// Returns the number of rows actually inserted (after dedup).
func (w *Writer) FlushBatch(ctx context.Context, rows []*Annotation) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	start := time.Now()

	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var totalInserted int64

	for _, row := range rows {
		var rawBytes []byte
		if w.storeRaw && row.Raw != nil {
			if w.compressRaw {
				rawBytes = zstdEncoder.EncodeAll(row.Raw, nil)
			} else {
				rawBytes = row.Raw
			}
		}

		tag, err := tx.Exec(ctx, `
			INSERT INTO community_annotations (annotation_id, first_seen,
				router_id, prefix, community, kind, resolved, raw_msg)
			VALUES ($1, now(), $2, $3, $4, $5, $6, $7)
			ON CONFLICT (annotation_id) DO NOTHING`,
			row.ID, row.RouterID, row.Prefix, row.Community, row.Kind, row.Resolved, rawBytes,
		)
		if err != nil {
			return 0, fmt.Errorf("insert annotation: %w", err)
		}

		affected := tag.RowsAffected()
		totalInserted += affected
		if affected == 0 {
			metrics.AnnotationDedupConflictsTotal.WithLabelValues(row.Topic).Inc()
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}

	dur := time.Since(start).Seconds()
	metrics.DBWriteDuration.WithLabelValues("insert").Observe(dur)
	metrics.DBRowsAffectedTotal.WithLabelValues("community_annotations", "insert").Add(float64(totalInserted))
	metrics.BatchSize.Observe(float64(len(rows)))

	return totalInserted, nil
}
