package telemetry

import (
	"go.opentelemetry.io/otel/metric"
)

// PoolMetrics holds the instruments updated by the buffer pool.
type PoolMetrics struct {
	Hits       metric.Int64Counter
	Misses     metric.Int64Counter
	Evictions  metric.Int64Counter
	WriteBacks metric.Int64Counter
	IOErrors   metric.Int64Counter
}

// NewPoolMetrics creates and registers the buffer pool instruments on meter.
func NewPoolMetrics(meter metric.Meter) (*PoolMetrics, error) {
	hits, err := meter.Int64Counter(
		"bufmgr.pool.hits",
		metric.WithDescription("Page fetches served from a resident frame."),
	)
	if err != nil {
		return nil, err
	}

	misses, err := meter.Int64Counter(
		"bufmgr.pool.misses",
		metric.WithDescription("Page fetches that had to read from the page file."),
	)
	if err != nil {
		return nil, err
	}

	evictions, err := meter.Int64Counter(
		"bufmgr.pool.evictions",
		metric.WithDescription("Valid pages evicted by the clock replacer."),
	)
	if err != nil {
		return nil, err
	}

	writeBacks, err := meter.Int64Counter(
		"bufmgr.pool.writebacks",
		metric.WithDescription("Dirty pages written back to their page file."),
	)
	if err != nil {
		return nil, err
	}

	ioErrors, err := meter.Int64Counter(
		"bufmgr.pool.io_errors",
		metric.WithDescription("Failed page file operations."),
	)
	if err != nil {
		return nil, err
	}

	return &PoolMetrics{
		Hits:       hits,
		Misses:     misses,
		Evictions:  evictions,
		WriteBacks: writeBacks,
		IOErrors:   ioErrors,
	}, nil
}
