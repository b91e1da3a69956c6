package observability

import (
	"sync"
	"time"
)

// JobOutcome is how one attempt at a retry job ended.
type JobOutcome string

const (
	JobOutcomeDone    JobOutcome = "done"
	JobOutcomeRetried JobOutcome = "retried"
	JobOutcomeDead    JobOutcome = "dead"
)

type JobCounts struct {
	Claimed      uint64 `json:"claimed"`
	Done         uint64 `json:"done"`
	Failed       uint64 `json:"failed"`
	Retried      uint64 `json:"retried"`
	DeadLettered uint64 `json:"deadLettered"`
}

func (c *JobCounts) add(outcome JobOutcome) {
	switch outcome {
	case JobOutcomeDone:
		c.Done++
	case JobOutcomeRetried:
		c.Failed++
		c.Retried++
	case JobOutcomeDead:
		c.Failed++
		c.DeadLettered++
	}
}

// JobMetrics keeps in-process notification job counters for the worker's
// stats page. Prometheus carries the same numbers across processes.
type JobMetrics struct {
	mu     sync.Mutex
	totals JobCounts
	byType map[string]*JobCounts

	durationCount uint64
	durationTotal time.Duration
	durationMax   time.Duration
}

func NewJobMetrics() *JobMetrics {
	return &JobMetrics{byType: make(map[string]*JobCounts)}
}

func (m *JobMetrics) counts(jobType string) *JobCounts {
	c, ok := m.byType[jobType]
	if !ok {
		c = &JobCounts{}
		m.byType[jobType] = c
	}
	return c
}

func (m *JobMetrics) Claimed(jobType string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totals.Claimed++
	m.counts(jobType).Claimed++
}

// Finished records the outcome of one attempt and how long it took.
func (m *JobMetrics) Finished(jobType string, outcome JobOutcome, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totals.add(outcome)
	m.counts(jobType).add(outcome)

	m.durationCount++
	m.durationTotal += d
	if d > m.durationMax {
		m.durationMax = d
	}
}

type JobMetricsSnapshot struct {
	JobCounts
	ByType          map[string]JobCounts
	AverageDuration time.Duration
	MaxDuration     time.Duration
}

func (m *JobMetrics) Snapshot() JobMetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := JobMetricsSnapshot{
		JobCounts:   m.totals,
		ByType:      make(map[string]JobCounts, len(m.byType)),
		MaxDuration: m.durationMax,
	}
	for t, c := range m.byType {
		s.ByType[t] = *c
	}
	if m.durationCount > 0 {
		s.AverageDuration = m.durationTotal / time.Duration(m.durationCount)
	}
	return s
}
