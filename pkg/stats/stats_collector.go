package stats

import (
	"time"

	"livesync/pkg/utils/syncutils"

	"golang.org/x/exp/constraints"
)

const (
	DEFAULT_MIN_REPORT_SAMPLES = 200
	DEFAULT_COLLECT_DURATION   = time.Duration(10) * time.Second
)

func LatStart() time.Time {
	return time.Now()
}

// StatsCollector accumulates samples and periodically reports
// percentiles to stderr. Collection is compiled out unless the
// stats build tag is set.
type StatsCollector[E constraints.Ordered] struct {
	tag                string
	data               []E
	report_timer       ReportTimer
	min_report_samples uint32
}

func NewStatsCollector[E constraints.Ordered](tag string, reportInterval time.Duration) StatsCollector[E] {
	return StatsCollector[E]{
		data:               make([]E, 0, 128),
		report_timer:       NewReportTimer(reportInterval),
		tag:                tag,
		min_report_samples: DEFAULT_MIN_REPORT_SAMPLES,
	}
}

type ConcurrentStatsCollector[E constraints.Ordered] struct {
	mu syncutils.Mutex
	StatsCollector[E]
}

func NewConcurrentStatsCollector[E constraints.Ordered](tag string, duration time.Duration) *ConcurrentStatsCollector[E] {
	return &ConcurrentStatsCollector[E]{
		StatsCollector: NewStatsCollector[E](tag, duration),
	}
}

// POf returns the p-th percentile of sorted data.
func POf[E constraints.Ordered](data []E, p float64) E {
	idx := int(float64(len(data)) * p)
	if idx >= len(data) {
		idx = len(data) - 1
	}
	return data[idx]
}
