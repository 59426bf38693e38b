package monitor

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
)

// Schedule runs a loop iteration on every tick of spec (six fields, with seconds)
// instead of sleeping between polls. Overlapping runs are skipped.
func (m *Monitor) Schedule(ctx context.Context, spec string) (*cron.Cron, error) {
	c := cron.New(
		cron.WithSeconds(),
		cron.WithLocation(m.Config().Location()),
		cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
	)
	if _, err := c.AddFunc(spec, func() { m.iterate(ctx) }); err != nil {
		return nil, fmt.Errorf("register poll schedule %q: %w", spec, err)
	}
	c.Start()
	m.log.Info().Str("spec", spec).Msg("scheduler started")
	return c, nil
}
