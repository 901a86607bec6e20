package collector

import (
	"context"
	"fmt"
	"time"

	"kdash-mock/internal/models"
	"kdash-mock/internal/services"
	"kdash-mock/internal/store"

	"github.com/rs/zerolog/log"
	"k8s.io/utils/clock"
)

const (
	usageWarning  = 80.0
	usageCritical = 95.0

	collectTimeout = 30 * time.Second
)

// Options controls how often the collector records and prunes history
type Options struct {
	Interval        time.Duration
	CleanupInterval time.Duration
	Retention       time.Duration
}

// Collector periodically records a summary row for every enabled cluster and raises
// alerts when a cluster crosses a threshold
type Collector struct {
	k8s   *services.KubernetesService
	store *store.MetricsStore
	clock clock.WithTicker
	opts  Options
}

// New creates a collector. Tickers come from clk; nil means the wall clock
func New(k8s *services.KubernetesService, s *store.MetricsStore, clk clock.WithTicker, opts Options) *Collector {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Collector{k8s: k8s, store: s, clock: clk, opts: opts}
}

// Run collects once immediately, then on every interval, and prunes history on every
// cleanup interval. It returns when ctx is cancelled
func (c *Collector) Run(ctx context.Context) {
	ticker := c.clock.NewTicker(c.opts.Interval)
	defer ticker.Stop()
	cleanupTicker := c.clock.NewTicker(c.opts.CleanupInterval)
	defer cleanupTicker.Stop()

	c.Collect(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			c.Collect(ctx)
		case <-cleanupTicker.C():
			c.cleanup(ctx)
		}
	}
}

// Collect records one summary row per enabled cluster. Failures are logged and the
// cluster is skipped
func (c *Collector) Collect(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, collectTimeout)
	defer cancel()

	for _, name := range c.k8s.EnabledClusters() {
		state, err := c.k8s.Observe(ctx, name)
		if err != nil {
			log.Warn().Err(err).Str("cluster", name).Msg("failed to observe cluster")
			continue
		}

		row := summaryRow(state)
		if err := c.store.SaveSnapshot(ctx, row); err != nil {
			log.Error().Err(err).Str("cluster", name).Msg("failed to save snapshot")
			continue
		}
		log.Debug().
			Str("cluster", name).
			Int("nodes", row.NodeCount).
			Int("pods", row.PodCount).
			Msg("recorded cluster summary")

		c.raise(ctx, name, checkThresholds(state))
	}
}

func (c *Collector) raise(ctx context.Context, cluster string, alerts []models.Alert) {
	for i := range alerts {
		alert := &alerts[i]
		created, err := c.store.RaiseAlert(ctx, alert)
		if err != nil {
			log.Error().Err(err).Str("cluster", cluster).Str("kind", alert.Kind).Msg("failed to save alert")
			continue
		}
		if created {
			log.Info().Str("cluster", cluster).Str("severity", alert.Severity).Msg(alert.Message)
		}
	}
}

func (c *Collector) cleanup(ctx context.Context) {
	removed, err := c.store.CleanupOldSnapshots(ctx, c.opts.Retention)
	if err != nil {
		log.Error().Err(err).Msg("failed to cleanup old snapshots")
		return
	}
	log.Debug().Int64("removed", removed).Msg("pruned history")
}

func summaryRow(state services.ClusterState) *models.MetricSnapshot {
	return &models.MetricSnapshot{
		Cluster:      state.Config.Name,
		CPUUsage:     state.Usage.CPUPercent,
		MemoryUsage:  state.Usage.MemoryPercent,
		PodCount:     state.Pods.Total,
		PendingCount: state.Pods.Pending,
		CrashLooping: state.Pods.CrashLooping,
		NodeCount:    len(state.Snapshot.Nodes),
		ServiceCount: len(state.Snapshot.Services),
	}
}

// checkThresholds returns the alerts a cluster state warrants
func checkThresholds(state services.ClusterState) []models.Alert {
	cluster := state.Config.Name
	var alerts []models.Alert
	add := func(kind, severity, format string, args ...any) {
		alerts = append(alerts, models.Alert{
			Cluster:  cluster,
			Kind:     kind,
			Severity: severity,
			Message:  fmt.Sprintf(format, args...),
		})
	}

	if cpu := state.Usage.CPUPercent; cpu > usageCritical {
		add(models.AlertKindCPU, "Critical", "CPU requests are critically high at %.1f%%", cpu)
	} else if cpu > usageWarning {
		add(models.AlertKindCPU, "Warning", "CPU requests are elevated at %.1f%%", cpu)
	}

	if mem := state.Usage.MemoryPercent; mem > usageCritical {
		add(models.AlertKindMemory, "Critical", "Memory requests are critically high at %.1f%%", mem)
	} else if mem > usageWarning {
		add(models.AlertKindMemory, "Warning", "Memory requests are elevated at %.1f%%", mem)
	}

	if failed := state.Pods.Failed; failed > 0 {
		add(models.AlertKindFailed, "Warning", "%d pod(s) in failed state", failed)
	}
	if crashing := state.Pods.CrashLooping; crashing > 0 {
		add(models.AlertKindCrashLoop, "Warning", "%d pod(s) in CrashLoopBackOff", crashing)
	}
	return alerts
}
