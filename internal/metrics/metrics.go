// Package metrics exposes run statistics in the Prometheus textfile format.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/spigell/offres-filter/internal/partition"
	"github.com/spigell/offres-filter/internal/stats"
)

const namespace = "offres"

// Collector holds the run metrics on a private registry.
type Collector struct {
	registry *prometheus.Registry

	offers        prometheus.Gauge
	byCategory    *prometheus.GaugeVec
	writeFailures prometheus.Counter
	quality       prometheus.Gauge
	duration      prometheus.Gauge
}

func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		offers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "offers_total",
			Help:      "Number of offers read by the last run.",
		}),
		byCategory: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "offers_by_category",
			Help:      "Number of offers per output subset in the last run.",
		}, []string{"category"}),
		writeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subset_write_failures_total",
			Help:      "Number of subsets that could not be written.",
		}),
		quality: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "quality_score",
			Help:      "Share of alternance offers among all offers, in percent.",
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
	}

	c.registry.MustRegister(c.offers, c.byCategory, c.writeFailures, c.quality, c.duration)
	return c
}

// Registry returns the registry the collectors are registered on.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Observe records the statistics of a run and its duration.
func (c *Collector) Observe(s stats.RunStatistics, d time.Duration) {
	c.offers.Set(float64(s.Total))
	c.byCategory.WithLabelValues(partition.SchoolSubset).Set(float64(s.TrainingOrg.Count))
	for _, share := range s.Contracts {
		c.byCategory.WithLabelValues(partition.SubsetName(share.Type)).Set(float64(share.Count))
	}
	if s.Writes != nil {
		c.writeFailures.Add(float64(len(s.Writes.Failures)))
	}
	c.quality.Set(s.QualityScore)
	c.duration.Set(d.Seconds())
}

// WriteTextfile writes the registry to path for the node exporter textfile collector.
func (c *Collector) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
