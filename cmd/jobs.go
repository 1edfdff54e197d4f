package main

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
)

const jobTimeout = 30 * time.Second

// startJobs runs the periodic maintenance jobs until ctx is cancelled.
func (app *application) startJobs(ctx context.Context) error {
	c := cron.New()

	if _, err := c.AddFunc(app.cfg.Jobs.SessionCheck, func() {
		runCtx, cancel := context.WithTimeout(ctx, jobTimeout)
		defer cancel()
		n, err := app.userService.CleanupSessions(runCtx)
		if err != nil {
			app.log.Errorf("session cleanup: %v", err)
			return
		}
		if n > 0 {
			app.log.Infof("session cleanup: removed %d sessions", n)
		}
	}); err != nil {
		return err
	}

	if _, err := c.AddFunc(app.cfg.Jobs.ExpirySweep, func() {
		runCtx, cancel := context.WithTimeout(ctx, jobTimeout)
		defer cancel()
		n, err := app.bookingService.ExpireStale(runCtx)
		if err != nil {
			app.log.Errorf("booking expiry: %v", err)
			return
		}
		if n > 0 {
			app.log.Infof("booking expiry: cancelled %d stale bookings", n)
		}
	}); err != nil {
		return err
	}

	if app.limiter != nil {
		if _, err := c.AddFunc("@every 10m", func() { app.limiter.prune(10 * time.Minute) }); err != nil {
			return err
		}
	}

	c.Start()
	app.log.Info("background jobs started")

	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
