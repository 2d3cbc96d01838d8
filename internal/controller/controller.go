package controller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MrSnakeDoc/madvpn/internal/domain"
	"github.com/MrSnakeDoc/madvpn/internal/logger"
	"github.com/MrSnakeDoc/madvpn/internal/notify"
	"github.com/MrSnakeDoc/madvpn/internal/probe"
)

const DefaultSettleDelay = time.Second

// Options configures a Controller. Zero durations use the package defaults.
type Options struct {
	Title            string // notification title, ex: "MAD VPN"
	ServiceName      string // display name, ex: "OpenVPN"
	Commands         probe.CommandSet
	SettleDelay      time.Duration // wait between start/stop and the follow-up status check
	StatusDuration   time.Duration
	ProgressDuration time.Duration
	HelpText         func() string // info dialog body, evaluated on each info action
}

// Controller owns the entry points triggered by the remote or the CLI.
// Actions run one at a time.
type Controller struct {
	opts     Options
	runner   probe.Runner
	parser   *probe.Parser
	notifier notify.Notifier
	logger   logger.Logger
	sleep    func(ctx context.Context, d time.Duration) error

	mu sync.Mutex
}

// New creates a controller
func New(opts Options, runner probe.Runner, notifier notify.Notifier, log logger.Logger) *Controller {
	if opts.Title == "" {
		opts.Title = "MAD VPN"
	}
	if opts.ServiceName == "" {
		opts.ServiceName = "OpenVPN"
	}
	if opts.Commands.Status.IsZero() {
		opts.Commands = probe.DefaultCommandSet()
	}
	if opts.SettleDelay < 0 {
		opts.SettleDelay = 0
	}
	if opts.HelpText == nil {
		opts.HelpText = func() string { return opts.Title + " Controller is running as a service." }
	}

	return &Controller{
		opts:     opts,
		runner:   runner,
		parser:   probe.NewParser(),
		notifier: notifier,
		logger:   log,
		sleep:    sleepCtx,
	}
}

// CheckStatus probes the unit and shows the result.
func (c *Controller) CheckStatus(ctx context.Context) probe.StatusInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.checkStatus(ctx)
}

// StartService starts the unit, waits for it to settle and shows the new status.
func (c *Controller) StartService(ctx context.Context) probe.StatusInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.transition(ctx, domain.ActionStart, c.opts.Commands.Start,
		fmt.Sprintf("Starting %s...", c.opts.ServiceName), domain.SeverityInfo)
}

// StopService stops the unit, waits for it to settle and shows the new status.
func (c *Controller) StopService(ctx context.Context) probe.StatusInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.transition(ctx, domain.ActionStop, c.opts.Commands.Stop,
		fmt.Sprintf("Stopping %s...", c.opts.ServiceName), domain.SeverityWarning)
}

// ShowInfo displays the help text. It never touches the service.
func (c *Controller) ShowInfo(ctx context.Context) {
	c.notify(ctx, notify.Progress(c.opts.Title, c.opts.HelpText(), domain.ActionInfo,
		domain.SeverityInfo, c.opts.StatusDuration))
}

// Probe runs the status command without notifying. Used by the poller.
func (c *Controller) Probe(ctx context.Context) probe.StatusInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.probe(ctx)
}

// Announce shows a status result obtained earlier through Probe.
func (c *Controller) Announce(ctx context.Context, info probe.StatusInfo) {
	c.notify(ctx, notify.FromStatus(c.opts.Title, c.opts.ServiceName, info, c.opts.StatusDuration))
}

// Dispatch runs the entry point bound to action. The info action returns a
// zero StatusInfo and false.
func (c *Controller) Dispatch(ctx context.Context, action domain.Action) (probe.StatusInfo, bool, error) {
	c.logger.Info("action triggered", logger.String("action", action.String()))

	switch action {
	case domain.ActionStatus:
		return c.CheckStatus(ctx), true, nil
	case domain.ActionStart:
		return c.StartService(ctx), true, nil
	case domain.ActionStop:
		return c.StopService(ctx), true, nil
	case domain.ActionInfo:
		c.ShowInfo(ctx)
		return probe.StatusInfo{}, false, nil
	default:
		c.logger.Warn("unknown action", logger.String("action", action.String()))
		return probe.StatusInfo{}, false, fmt.Errorf("unknown action: %q", action)
	}
}

func (c *Controller) checkStatus(ctx context.Context) probe.StatusInfo {
	info := c.probe(ctx)
	n := notify.FromStatus(c.opts.Title, c.opts.ServiceName, info, c.opts.StatusDuration)
	c.notify(ctx, n)
	c.logger.Info("status", logger.String("message", n.Message))
	return info
}

func (c *Controller) probe(ctx context.Context) probe.StatusInfo {
	res := c.runner.Run(ctx, c.opts.Commands.Status)
	if res.Sentinel {
		c.logger.Debug("status command failed", logger.String("result", res.Output))
		return probe.UnknownStatus(res.Output)
	}

	c.logger.Debug("raw status output",
		logger.String("output", truncate(res.Output, 500)),
		logger.String("rule", c.parser.MatchedRule(res.Output)))
	return c.parser.Parse(res.Output)
}

func (c *Controller) transition(ctx context.Context, action domain.Action, cmd probe.Command, progress string, sev domain.Severity) probe.StatusInfo {
	c.notify(ctx, notify.Progress(c.opts.Title, progress, action, sev, c.opts.ProgressDuration))

	res := c.runner.Run(ctx, cmd)
	if res.Sentinel {
		c.logger.Warn("service command did not complete",
			logger.String("action", action.String()),
			logger.String("result", res.Output))
	} else {
		c.logger.Debug("service command output",
			logger.String("action", action.String()),
			logger.String("output", truncate(res.Output, 500)))
	}

	if err := c.sleep(ctx, c.opts.SettleDelay); err != nil {
		c.logger.Warn("settle delay interrupted", logger.Error(err))
	}

	return c.checkStatus(ctx)
}

func (c *Controller) notify(ctx context.Context, n domain.Notification) {
	if c.notifier == nil {
		return
	}
	if err := c.notifier.Notify(ctx, n); err != nil {
		c.logger.Warn("failed to deliver notification",
			logger.String("id", n.ID),
			logger.Error(err))
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
