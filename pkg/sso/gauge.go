package sso

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/platinummonkey/idp-redirect/pkg/observability"
)

// RefreshEnabledGauge sets the enabled mappings gauge from counter
func RefreshEnabledGauge(ctx context.Context, counter MappingCounter, metrics *observability.Metrics) error {
	if metrics == nil {
		return nil
	}
	count, err := counter.CountEnabled(ctx)
	if err != nil {
		return err
	}
	metrics.DomainMappingsEnabled.Set(float64(count))
	return nil
}

// ScheduleGaugeRefresh refreshes the enabled mappings gauge now and on every tick of spec
func ScheduleGaugeRefresh(c *cron.Cron, spec string, counter MappingCounter, metrics *observability.Metrics, logger *observability.Logger) (cron.EntryID, error) {
	refresh := func() {
		defer observability.RecoverPanic(logger, "mapping gauge refresh")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := RefreshEnabledGauge(ctx, counter, metrics); err != nil {
			logger.WithError(err).Warn("Failed to refresh enabled mappings gauge")
		}
	}

	id, err := c.AddFunc(spec, refresh)
	if err != nil {
		return 0, fmt.Errorf("failed to schedule gauge refresh: %w", err)
	}
	refresh()
	return id, nil
}
