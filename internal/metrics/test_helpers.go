package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// MetricValue reads the current value of a single-series counter, gauge or histogram
// (the sample count for histograms). Used by tests across packages to assert on
// instrumentation.
func MetricValue(c prometheus.Collector) (float64, error) {
	ch := make(chan prometheus.Metric, 1)
	go func() {
		c.Collect(ch)
		close(ch)
	}()

	m, ok := <-ch
	if !ok {
		return 0, fmt.Errorf("collector produced no metric")
	}
	// Drain so the collecting goroutine can exit.
	for range ch {
	}

	pb := &dto.Metric{}
	if err := m.Write(pb); err != nil {
		return 0, err
	}

	switch {
	case pb.Counter != nil:
		return pb.Counter.GetValue(), nil
	case pb.Gauge != nil:
		return pb.Gauge.GetValue(), nil
	case pb.Histogram != nil:
		return float64(pb.Histogram.GetSampleCount()), nil
	}
	return 0, fmt.Errorf("unsupported metric type")
}
