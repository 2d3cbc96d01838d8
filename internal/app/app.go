package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/madvpn/internal/config"
	"github.com/MrSnakeDoc/madvpn/internal/controller"
	"github.com/MrSnakeDoc/madvpn/internal/httpserver"
	"github.com/MrSnakeDoc/madvpn/internal/httpserver/deps"
	"github.com/MrSnakeDoc/madvpn/internal/keymap"
	"github.com/MrSnakeDoc/madvpn/internal/logger"
	"github.com/MrSnakeDoc/madvpn/internal/notify"
	"github.com/MrSnakeDoc/madvpn/internal/probe"
	"github.com/MrSnakeDoc/madvpn/internal/redis"
	"github.com/MrSnakeDoc/madvpn/internal/scheduler"
	redisstore "github.com/MrSnakeDoc/madvpn/internal/store/redis"
	"github.com/MrSnakeDoc/madvpn/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	reloader    *scheduler.KeymapReloader
	poller      *scheduler.StatusPoller
}

// New builds the daemon: notifier chain, controller, keymap reloader, status
// poller and HTTP server. A configured Redis that cannot be reached is fatal.
func New(cfg *config.Config, loggerClient logger.Logger) (*App, error) {
	registry := keymap.NewRegistry()

	var (
		redisClient   *goredis.Client
		store         *redisstore.Store
		redisNotifier *notify.RedisNotifier
	)
	if cfg.RedisEnabled() {
		client, err := redis.Connect(context.Background(), redisOptions(cfg), loggerClient)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		redisClient = client
		store = redisstore.NewStore(client, cfg.NotifyChannel)
		redisNotifier = newRedisNotifier(cfg, store, loggerClient)
		loggerClient.Info("on-screen notifications enabled",
			logger.String("channel", store.Channel()))
	} else {
		loggerClient.Info("redis not configured, on-screen notifications disabled")
	}

	notifiers := notify.Multi{notify.NewLogNotifier(loggerClient.Named("notify"))}
	if redisNotifier != nil {
		notifiers = append(notifiers, redisNotifier)
	}

	ctrl, err := newController(cfg, registry, notifiers, loggerClient)
	if err != nil {
		return nil, err
	}

	reloadTrigger := make(chan struct{}, 1)
	reloader := scheduler.NewKeymapReloader(
		cfg.KeymapFile,
		registry,
		loggerClient.Named("keymap"),
		cfg.KeymapReloadInterval,
		cfg.KeymapWatch,
		reloadTrigger,
	)

	poller := scheduler.NewStatusPoller(ctrl, loggerClient.Named("poller"), cfg.PollInterval)

	loggerClient.Debug("access restrictions",
		logger.Strings("cidrs", cfg.AllowedCIDRS),
		logger.Strings("hosts", cfg.AllowedHosts),
		logger.Bool("trust_proxy", cfg.TrustProxy))

	// Dependencies passed to routes (extend as needed).
	d := deps.Deps{
		Logger:         loggerClient,
		StartTime:      time.Now(),
		Version:        version.Version,
		Commit:         version.Commit,
		BuildDate:      version.BuildDate,
		GoVersion:      version.GoVersion,
		TimeNow:        time.Now,
		AllowedHosts:   cfg.AllowedHosts,
		AllowedCIDRS:   cfg.AllowedCIDRS,
		TrustProxy:     cfg.TrustProxy,
		RateBurst:      cfg.RateBurst,
		RatePerMin:     cfg.RatePerMin,
		Controller:     ctrl,
		Keymap:         registry,
		KeyRepeatDelay: cfg.KeyRepeatDelay,
		ServiceManager: cfg.ServiceManager,
		ServiceUnit:    cfg.ServiceUnit,
		RedisClient:    redisClient,
		ReloadTrigger:  reloadTrigger,
	}
	if redisNotifier != nil {
		d.NotifierState = redisNotifier.State
		d.Display = store
	}

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      httpserver.New(cfg, loggerClient, d),
		redisClient: redisClient,
		reloader:    reloader,
		poller:      poller,
	}, nil
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting madvpn %s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("madvpn %s", version.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.reloader.Start(ctx); err != nil {
		return fmt.Errorf("failed to start keymap reloader: %w", err)
	}
	a.logger.Info("keymap reloader started",
		logger.Duration("interval", a.cfg.KeymapReloadInterval),
		logger.Bool("watch", a.cfg.KeymapWatch))

	if err := a.poller.Start(ctx); err != nil {
		return fmt.Errorf("failed to start status poller: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case runErr = <-errCh:
	}

	a.reloader.Stop()
	a.poller.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("failed to stop server: %w", err)
	}

	a.closeRedis()

	if runErr != nil {
		return runErr
	}
	a.logger.Info("✅ madvpn stopped cleanly")
	return nil
}

func (a *App) closeRedis() {
	if a.redisClient == nil {
		return
	}
	if err := a.redisClient.Close(); err != nil {
		a.logger.Warnf("failed to close redis: %v", err)
	} else {
		a.logger.Info("✅ Redis closed cleanly")
	}
}

func newController(cfg *config.Config, registry *keymap.Registry, notifier notify.Notifier, log logger.Logger) (*controller.Controller, error) {
	commands, err := probe.NewCommandSet(probe.Templates{
		Manager: cfg.ServiceManager,
		Unit:    cfg.ServiceUnit,
		Status:  cfg.StatusCommand,
		Start:   cfg.StartCommand,
		Stop:    cfg.StopCommand,
	})
	if err != nil {
		return nil, fmt.Errorf("invalid service commands: %w", err)
	}

	runner := probe.NewRunner(cfg.CommandTimeout, log.Named("runner"))

	return controller.New(controller.Options{
		Title:            cfg.Title,
		ServiceName:      cfg.ServiceName,
		Commands:         commands,
		SettleDelay:      cfg.SettleDelay,
		StatusDuration:   cfg.NotifyDuration,
		ProgressDuration: cfg.ProgressDuration,
		HelpText:         func() string { return keymap.HelpText(cfg.Title, registry.All()) },
	}, runner, notifier, log.Named("controller")), nil
}

func newRedisNotifier(cfg *config.Config, store *redisstore.Store, log logger.Logger) *notify.RedisNotifier {
	return notify.NewRedisNotifier(store, notify.BreakerSettings{
		MaxFailures:  uint32(cfg.BreakerMaxFailures),
		OpenTimeout:  cfg.BreakerOpenTimeout,
		WriteTimeout: cfg.RedisIOTimeout,
	}, log.Named("redis-notifier"))
}

func redisOptions(cfg *config.Config) redis.ConnectOptions {
	return redis.ConnectOptions{
		Addr:           cfg.RedisAddr,
		User:           cfg.RedisUser,
		Password:       cfg.RedisPassword,
		DB:             cfg.RedisDB,
		DialTimeout:    cfg.RedisDialTimeout,
		IOTimeout:      cfg.RedisIOTimeout,
		PoolSize:       cfg.RedisPoolSize,
		ConnectTimeout: cfg.RedisConnectTimeout,
		RetryInterval:  cfg.RedisRetryInterval,
		MaxWait:        cfg.RedisMaxWait,
	}
}
