package specsrc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/route-beacon/community-resolver/internal/commspec"
	"github.com/route-beacon/community-resolver/internal/metrics"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a single HTTP fetch of a specification document.
const DefaultTimeout = 5 * time.Second

var httpClient = &http.Client{Timeout: DefaultTimeout}

// Fetch retrieves one specification document from a file path or
// http(s) URL. Sources ending in .zst or .gz are decompressed
// transparently.
func Fetch(ctx context.Context, source string) (*commspec.Document, error) {
	var body io.ReadCloser

	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, fmt.Errorf("building request: %w", err)
		}
		resp, err := httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetching: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("fetching: unexpected status %s", resp.Status)
		}
		body = resp.Body
	} else {
		f, err := os.Open(source)
		if err != nil {
			return nil, fmt.Errorf("opening: %w", err)
		}
		body = f
	}
	defer body.Close()

	var r io.Reader = body
	switch {
	case strings.HasSuffix(source, ".zst"):
		zr, err := zstd.NewReader(body)
		if err != nil {
			return nil, fmt.Errorf("zstd reader: %w", err)
		}
		defer zr.Close()
		r = zr
	case strings.HasSuffix(source, ".gz"):
		gr, err := gzip.NewReader(body)
		if err != nil {
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		defer gr.Close()
		r = gr
	}

	var doc commspec.Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	if doc.Communities == nil {
		return nil, fmt.Errorf("document has no bgp-communities object")
	}

	return &doc, nil
}

// LoadAll fetches every source in order and builds the frozen registry.
// A source that cannot be fetched or decoded fails the whole load;
// malformed individual candidates are logged, counted, and skipped.
func LoadAll(ctx context.Context, sources []string, logger *zap.Logger) (*commspec.Registry, error) {
	b := commspec.NewBuilder()

	for _, source := range sources {
		doc, err := Fetch(ctx, source)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", source, err)
		}

		rejects := b.Add(doc)
		for _, rerr := range rejects {
			var kind string
			if specErr, ok := rerr.(*commspec.SpecificationError); ok {
				kind = specErr.Kind.String()
			}
			metrics.SpecLoadRejectsTotal.WithLabelValues(kind).Inc()
			logger.Warn("skipping malformed candidate",
				zap.String("source", source),
				zap.Error(rerr),
			)
		}

		logger.Info("loaded community specification",
			zap.String("source", source),
			zap.Int("rejected", len(rejects)),
		)
	}

	registry := b.Build()
	regular, large, extended := registry.Counts()
	metrics.SpecCandidatesLoaded.WithLabelValues("regular").Set(float64(regular))
	metrics.SpecCandidatesLoaded.WithLabelValues("large").Set(float64(large))
	metrics.SpecCandidatesLoaded.WithLabelValues("extended").Set(float64(extended))

	logger.Info("community registry built",
		zap.Int("sources", len(sources)),
		zap.Int("regular", regular),
		zap.Int("large", large),
		zap.Int("extended", extended),
	)

	return registry, nil
}
