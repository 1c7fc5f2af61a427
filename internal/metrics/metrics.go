package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	LookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commresolver_lookups_total",
			Help: "Community lookups by kind and outcome (match, miss, error).",
		},
		[]string{"kind", "result"},
	)

	ResolveDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "commresolver_resolve_duration_seconds",
			Help:    "Single community resolution latency.",
			Buckets: []float64{0.000001, 0.000005, 0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005},
		},
		[]string{"kind"},
	)

	SpecCandidatesLoaded = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "commresolver_spec_candidates_loaded",
			Help: "Candidates in the registry by kind.",
		},
		[]string{"kind"},
	)

	SpecLoadRejectsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commresolver_spec_load_rejects_total",
			Help: "Malformed candidates skipped at load time.",
		},
		[]string{"kind"},
	)

	KafkaMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commresolver_kafka_messages_total",
			Help: "Route update messages consumed from Kafka.",
		},
		[]string{"topic"},
	)

	ParseErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commresolver_parse_errors_total",
			Help: "Parse failures by stage.",
		},
		[]string{"stage", "reason"},
	)

	AnnotationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commresolver_annotations_total",
			Help: "Communities examined by the annotator, by kind and outcome.",
		},
		[]string{"kind", "result"},
	)

	AnnotationDedupConflictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commresolver_annotation_dedup_conflicts_total",
			Help: "Annotation dedup hits (ON CONFLICT DO NOTHING skips).",
		},
		[]string{"topic"},
	)

	DBWriteDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "commresolver_db_write_duration_seconds",
			Help:    "DB write latency.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		},
		[]string{"op"},
	)

	DBRowsAffectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commresolver_db_rows_affected_total",
			Help: "DB rows written.",
		},
		[]string{"table", "op"},
	)

	BatchSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "commresolver_batch_size",
			Help:    "Annotation batch sizes flushed to DB.",
			Buckets: []float64{1, 10, 50, 100, 250, 500, 1000, 2000, 5000},
		},
	)

	LastMsgTimestamp = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "commresolver_last_msg_timestamp_seconds",
			Help: "Unix timestamp of last processed message.",
		},
		[]string{"topic"},
	)
)

func Register() {
	prometheus.MustRegister(
		LookupsTotal,
		ResolveDuration,
		SpecCandidatesLoaded,
		SpecLoadRejectsTotal,
		KafkaMessagesTotal,
		ParseErrorsTotal,
		AnnotationsTotal,
		AnnotationDedupConflictsTotal,
		DBWriteDuration,
		DBRowsAffectedTotal,
		BatchSize,
		LastMsgTimestamp,
	)
}
