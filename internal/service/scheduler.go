package service

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Cleanup holds the services whose leftovers are swept periodically
type Cleanup struct {
	Tokens *Tokens
	Users  *Users
	Site   *Site
}

// StartScheduler registers the cleanup jobs and starts the cron runner. The
// caller stops it on shutdown.
func StartScheduler(c Cleanup) (*cron.Cron, error) {
	s := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))

	jobs := []struct {
		spec string
		name string
		run  func(context.Context) (int64, error)
	}{
		{"@every 1h", "tokens", c.sweepTokens},
		{"@every 1h", "chat", c.Site.PruneChat},
		{"@every 1m", "maintenance", c.Site.DeactivateExpiredMaintenance},
		{"@daily", "accounts", c.sweepAccounts},
	}

	for _, j := range jobs {
		if _, err := s.AddFunc(j.spec, runJob(j.name, j.run)); err != nil {
			return nil, err
		}

		zap.L().Debug("Cleanup job attached", zap.String("job", j.name), zap.String("schedule", j.spec))
	}

	s.Start()
	return s, nil
}

func runJob(name string, run func(context.Context) (int64, error)) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		n, err := run(ctx)
		if err != nil {
			zap.L().Error("Cleanup job failed", zap.String("job", name), zap.Error(err))
			return
		}

		if n > 0 {
			zap.L().Debug("Cleanup job finished", zap.String("job", name), zap.Int64("removed", n))
		}
	}
}

func (c Cleanup) sweepTokens(ctx context.Context) (int64, error) {
	n, err := c.Tokens.DeleteExpired(ctx)
	if err != nil {
		return 0, err
	}

	resends, err := c.Tokens.DeleteStaleResends(ctx)
	return n + resends, err
}

func (c Cleanup) sweepAccounts(ctx context.Context) (int64, error) {
	n, err := c.Users.DeleteExpired(ctx)
	return int64(n), err
}
