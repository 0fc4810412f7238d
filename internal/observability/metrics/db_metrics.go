package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const countTimeout = 2 * time.Second

// RecordCounter reports how many records are stored.
type RecordCounter interface {
	Count(ctx context.Context) (int, error)
}

func registerDBMetrics(counter RecordCounter, onError func(error)) {
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "cost_standards_stored",
			Help: "Stored cost standard records",
		},
		func() float64 {
			return queryCount(counter, onError)
		},
	))
}

func queryCount(counter RecordCounter, onError func(error)) float64 {
	if counter == nil {
		return 0
	}
	ctx, cancel := context.WithTimeout(context.Background(), countTimeout)
	defer cancel()
	count, err := counter.Count(ctx)
	if err != nil {
		if onError != nil {
			onError(err)
		}
		return 0
	}
	if count < 0 {
		return 0
	}
	return float64(count)
}
