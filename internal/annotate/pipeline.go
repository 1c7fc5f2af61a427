package annotate

import (
	"context"
	"time"

	"github.com/route-beacon/community-resolver/internal/metrics"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

type Pipeline struct {
	annotator       *Annotator
	writer          *Writer
	batchSize       int
	flushInterval   time.Duration
	maxPayloadBytes int
	logger          *zap.Logger
}

func NewPipeline(annotator *Annotator, writer *Writer, batchSize, flushIntervalMs, maxPayloadBytes int, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		annotator:       annotator,
		writer:          writer,
		batchSize:       batchSize,
		flushInterval:   time.Duration(flushIntervalMs) * time.Millisecond,
		maxPayloadBytes: maxPayloadBytes,
		logger:          logger,
	}
}

// Run processes records from the channel until context is cancelled.
// It forwards successfully flushed records for offset commit.
func (p *Pipeline) Run(ctx context.Context, records <-chan []*kgo.Record, flushed chan<- []*kgo.Record) {
	var batch []*Annotation
	var batchRecords []*kgo.Record
	ticker := time.NewTicker(p.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if len(batchRecords) > 0 {
				p.flush(ctx, batch, batchRecords, flushed)
			}
			return

		case recs, ok := <-records:
			if !ok {
				if len(batchRecords) > 0 {
					p.flush(ctx, batch, batchRecords, flushed)
				}
				return
			}

			for _, rec := range recs {
				rows := p.processRecord(rec)
				if len(rows) > 0 {
					batch = append(batch, rows...)
				}
				// Always track the record for offset commit, even when
				// it produced no annotations. This prevents unparseable
				// records from stalling partition progress.
				batchRecords = append(batchRecords, rec)
			}

			if len(batchRecords) >= p.batchSize {
				if p.flush(ctx, batch, batchRecords, flushed) {
					batch = nil
					batchRecords = nil
				}
			}

			// Cap memory: if repeated flush failures cause the batch to
			// grow beyond 10x the configured size, drop it to prevent
			// unbounded memory growth during prolonged DB outages.
			if len(batchRecords) >= p.batchSize*10 {
				p.logger.Error("dropping oversized batch after repeated flush failures",
					zap.Int("dropped_records", len(batchRecords)),
					zap.Int("dropped_annotations", len(batch)),
				)
				batch = nil
				batchRecords = nil
			}

		case <-ticker.C:
			if len(batchRecords) > 0 {
				if p.flush(ctx, batch, batchRecords, flushed) {
					batch = nil
					batchRecords = nil
				}
			}
		}
	}
}

// processRecord decodes one route update and resolves its communities.
// Returns nil for records that carry nothing to annotate.
func (p *Pipeline) processRecord(rec *kgo.Record) []*Annotation {
	if p.maxPayloadBytes > 0 && len(rec.Value) > p.maxPayloadBytes {
		metrics.ParseErrorsTotal.WithLabelValues("payload", "too_large").Inc()
		p.logger.Warn("skipping oversized message",
			zap.String("topic", rec.Topic),
			zap.Int("bytes", len(rec.Value)),
		)
		return nil
	}

	metrics.KafkaMessagesTotal.WithLabelValues(rec.Topic).Inc()
	metrics.LastMsgTimestamp.WithLabelValues(rec.Topic).SetToCurrentTime()

	u, err := DecodeRouteUpdate(rec.Value)
	if err != nil {
		metrics.ParseErrorsTotal.WithLabelValues("json", "decode").Inc()
		p.logger.Warn("failed to decode route update",
			zap.String("topic", rec.Topic),
			zap.Error(err),
		)
		return nil
	}

	// Withdrawals and EORs carry no communities worth recording.
	if u.IsEOR || u.Action == "D" || !u.HasCommunities() {
		return nil
	}

	rows := p.annotator.Annotate(u, rec.Topic)
	// The writer owns the store_raw decision; the pipeline just carries
	// the payload along.
	for _, row := range rows {
		row.Raw = rec.Value
	}
	return rows
}

func (p *Pipeline) flush(ctx context.Context, batch []*Annotation, records []*kgo.Record, flushed chan<- []*kgo.Record) bool {
	if _, err := p.writer.FlushBatch(ctx, batch); err != nil {
		p.logger.Error("batch flush failed", zap.Error(err))
		return false
	}

	// Signal successful flush for offset commit.
	select {
	case flushed <- records:
	case <-ctx.Done():
	}

	return true
}
