package monitoring

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/landcover-cli/internal/config"
)

// Checker runs periodic alert checks in the background.
type Checker struct {
	collector *Collector
	alerter   *Alerter
	cfg       config.MonitoringConfig
}

// NewChecker creates a background alert checker.
func NewChecker(collector *Collector, alerter *Alerter, cfg config.MonitoringConfig) *Checker {
	return &Checker{
		collector: collector,
		alerter:   alerter,
		cfg:       cfg,
	}
}

// Report is the outcome of one check.
type Report struct {
	Snapshot *MetricsSnapshot `json:"snapshot"`
	Alerts   []Alert          `json:"alerts"`
	Sent     int              `json:"sent"`
}

// Run starts the periodic check loop. It blocks until ctx is cancelled.
func (c *Checker) Run(ctx context.Context) {
	interval := time.Duration(c.cfg.CheckIntervalSecs) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	log := zap.L().With(zap.String("component", "monitoring.checker"))
	log.Info("starting alert checker",
		zap.Duration("interval", interval),
		zap.Int("lookback_hours", c.cfg.LookbackWindowHours),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("alert checker stopped")
			return
		case <-ticker.C:
			if _, err := c.Check(ctx); err != nil {
				log.Error("monitoring: failed to collect metrics", zap.Error(err))
			}
		}
	}
}

// Check collects one snapshot, evaluates it, and delivers any alerts.
func (c *Checker) Check(ctx context.Context) (*Report, error) {
	snap, err := c.collector.Collect(ctx, c.cfg.LookbackWindowHours)
	if err != nil {
		return nil, err
	}

	rep := &Report{Snapshot: snap, Alerts: c.alerter.Evaluate(snap)}
	if len(rep.Alerts) == 0 {
		zap.L().Debug("monitoring: no alerts triggered")
		return rep, nil
	}

	rep.Sent = c.alerter.SendAlerts(ctx, rep.Alerts)
	zap.L().Info("monitoring: alert check complete",
		zap.Int("alerts_triggered", len(rep.Alerts)),
		zap.Int("alerts_sent", rep.Sent),
	)
	return rep, nil
}
