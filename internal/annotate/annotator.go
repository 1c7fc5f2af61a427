package annotate

import (
	"crypto/sha256"

	"github.com/route-beacon/community-resolver/internal/commspec"
	"github.com/route-beacon/community-resolver/internal/metrics"
	"go.uber.org/zap"
)

// Resolver resolves one community string against the loaded registry.
// *commspec.Registry satisfies it.
type Resolver interface {
	Parse(community string) (string, bool, error)
}

// Annotation is one resolved community observed on one route.
type Annotation struct {
	ID        []byte // 32-byte SHA256 dedup key
	RouterID  string
	Prefix    string
	Community string
	Kind      string
	Resolved  string
	Raw       []byte // optional original message bytes
	Topic     string // for dedup metric labeling
}

// AnnotationID computes the dedup key for a (router, prefix, community)
// observation. Re-announcements of the same route with the same
// community collapse into a single row.
func AnnotationID(routerID, prefix, community string) []byte {
	h := sha256.New()
	h.Write([]byte(routerID))
	h.Write([]byte{0})
	h.Write([]byte(prefix))
	h.Write([]byte{0})
	h.Write([]byte(community))
	return h.Sum(nil)
}

// Annotator resolves the communities of decoded route updates.
type Annotator struct {
	resolver Resolver
	logger   *zap.Logger
}

func NewAnnotator(resolver Resolver, logger *zap.Logger) *Annotator {
	return &Annotator{resolver: resolver, logger: logger}
}

// Annotate resolves every community on the update and returns one
// annotation per match. Unmatched communities are counted and dropped;
// malformed numerals are logged and skipped without failing the update.
func (a *Annotator) Annotate(u *RouteUpdate, topic string) []*Annotation {
	var out []*Annotation

	resolve := func(communities []string) {
		for _, community := range communities {
			kind, ok := commspec.Classify(community)
			if !ok {
				metrics.AnnotationsTotal.WithLabelValues("unknown", "unclassified").Inc()
				continue
			}

			resolved, matched, err := a.resolver.Parse(community)
			if err != nil {
				metrics.AnnotationsTotal.WithLabelValues(kind.String(), "error").Inc()
				a.logger.Warn("community resolution failed",
					zap.String("community", community),
					zap.Error(err),
				)
				continue
			}
			if !matched {
				metrics.AnnotationsTotal.WithLabelValues(kind.String(), "miss").Inc()
				continue
			}

			metrics.AnnotationsTotal.WithLabelValues(kind.String(), "match").Inc()
			out = append(out, &Annotation{
				ID:        AnnotationID(u.RouterID, u.Prefix, community),
				RouterID:  u.RouterID,
				Prefix:    u.Prefix,
				Community: community,
				Kind:      kind.String(),
				Resolved:  resolved,
				Topic:     topic,
			})
		}
	}

	resolve(u.CommStd)
	resolve(u.CommExt)
	resolve(u.CommLarge)

	return out
}
