package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"role_mention_bot/internal/app"
	"role_mention_bot/internal/infra/config"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"
)

// MentionRunner runs one delivery pass.
type MentionRunner interface {
	RunPass(ctx context.Context, today time.Time) (*app.PassReport, error)
}

// RetentionRunner runs the two retention sweeps.
type RetentionRunner interface {
	SweepMentions(ctx context.Context, today time.Time) (*app.SweepReport, error)
	SweepDepartures(ctx context.Context, now time.Time) (int64, error)
}

// ReadyWaiter blocks until the Discord session is live.
type ReadyWaiter interface {
	WaitReady(ctx context.Context) error
}

// Options configures the two loops.
type Options struct {
	Location          *time.Location
	MentionInterval   time.Duration
	MentionWindow     config.Window
	DepartureInterval time.Duration
	RunOnStart        bool
}

// Loop is one fixed-interval schedule. When Window is set, ticks falling
// outside it are skipped without changing the cadence.
type Loop struct {
	Name     string
	Interval time.Duration
	Window   *config.Window
	Work     func(ctx context.Context, now time.Time) error
}

// TickDriver runs the mention loop and the departure loop on a cron engine.
type TickDriver struct {
	cronEngine *cron.Cron
	mentions   MentionRunner
	retention  RetentionRunner
	ready      ReadyWaiter
	logger     *logrus.Entry
	opts       Options
	now        func() time.Time
}

func NewTickDriver(
	mentions MentionRunner,
	retention RetentionRunner,
	ready ReadyWaiter,
	logger *logrus.Entry,
	opts Options,
) *TickDriver {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	cronLogger := cron.PrintfLogger(logger.WithField("component", "cron"))
	return &TickDriver{
		cronEngine: cron.New(
			cron.WithLocation(opts.Location),
			cron.WithLogger(cronLogger),
			// A panicking tick is logged and the loop keeps going; a slow tick
			// delays the next one instead of overlapping it.
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		mentions:  mentions,
		retention: retention,
		ready:     ready,
		logger:    logger,
		opts:      opts,
		now:       time.Now,
	}
}

// Loops returns the schedules the driver runs.
func (d *TickDriver) Loops() []Loop {
	window := d.opts.MentionWindow
	return []Loop{
		{
			Name:     "mentions",
			Interval: d.opts.MentionInterval,
			Window:   &window,
			Work:     d.mentionTick,
		},
		{
			Name:     "departures",
			Interval: d.opts.DepartureInterval,
			Work:     d.departureTick,
		},
	}
}

// Run waits for the Discord session, then runs both loops until ctx is done.
// Running ticks are allowed to finish before Run returns.
func (d *TickDriver) Run(ctx context.Context) error {
	d.logger.Info("Waiting for Discord session before scheduling...")
	if err := d.ready.WaitReady(ctx); err != nil {
		return fmt.Errorf("discord session never became ready: %w", err)
	}

	var ids []cron.EntryID
	for _, loop := range d.Loops() {
		if loop.Interval <= 0 {
			return fmt.Errorf("loop %s has non-positive interval %s", loop.Name, loop.Interval)
		}
		ids = append(ids, d.cronEngine.Schedule(cron.Every(loop.Interval), d.job(ctx, loop)))
		d.logger.WithFields(logrus.Fields{
			"loop":     loop.Name,
			"interval": loop.Interval.String(),
		}).Info("Scheduled loop")
	}

	d.cronEngine.Start()
	d.logger.WithField("window", d.opts.MentionWindow.String()).Info("Tick driver started")

	var startup conc.WaitGroup
	if d.opts.RunOnStart {
		for _, id := range ids {
			// WrappedJob carries the Recover and SkipIfStillRunning chain.
			startup.Go(d.cronEngine.Entry(id).WrappedJob.Run)
		}
	}

	<-ctx.Done()
	d.logger.Info("Stopping tick driver...")
	<-d.cronEngine.Stop().Done()
	startup.Wait()
	d.logger.Info("Tick driver gracefully stopped.")
	return nil
}

func (d *TickDriver) job(ctx context.Context, loop Loop) cron.Job {
	return cron.FuncJob(func() {
		d.runTick(ctx, loop)
	})
}

// runTick executes one tick of loop. Errors are logged and never stop the loop.
func (d *TickDriver) runTick(ctx context.Context, loop Loop) bool {
	if ctx.Err() != nil {
		return false
	}
	now := d.now().In(d.opts.Location)
	tickLogger := d.logger.WithFields(logrus.Fields{"loop": loop.Name, "tick": now.Format(time.RFC3339)})

	if loop.Window != nil && !loop.Window.Contains(now) {
		tickLogger.WithField("window", loop.Window.String()).Debug("Outside active window, skipping tick")
		return false
	}

	start := time.Now()
	if err := loop.Work(ctx, now); err != nil {
		tickLogger.WithError(err).Error("Tick finished with errors")
	} else {
		tickLogger.WithField("duration", time.Since(start).String()).Debug("Tick finished")
	}
	return true
}

// mentionTick delivers due mentions, then sweeps aged-out ones. A failed
// delivery pass does not prevent the sweep.
func (d *TickDriver) mentionTick(ctx context.Context, now time.Time) error {
	var errs []error
	if _, err := d.mentions.RunPass(ctx, now); err != nil {
		errs = append(errs, err)
	}
	if _, err := d.retention.SweepMentions(ctx, now); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (d *TickDriver) departureTick(ctx context.Context, now time.Time) error {
	_, err := d.retention.SweepDepartures(ctx, now)
	return err
}
