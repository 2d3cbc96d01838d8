package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/madvpn/internal/config"
	"github.com/MrSnakeDoc/madvpn/internal/domain"
	"github.com/MrSnakeDoc/madvpn/internal/keymap"
	"github.com/MrSnakeDoc/madvpn/internal/logger"
	"github.com/MrSnakeDoc/madvpn/internal/notify"
	"github.com/MrSnakeDoc/madvpn/internal/redis"
	redisstore "github.com/MrSnakeDoc/madvpn/internal/store/redis"
)

// ActionOptions tunes a one-shot CLI action.
type ActionOptions struct {
	JSON bool // print the StatusInfo as JSON instead of the notification lines
}

// RunAction runs a single action and exits. Notifications go to out, the log
// and, when reachable, the Redis display. An unreachable Redis only warns.
func RunAction(ctx context.Context, cfg *config.Config, loggerClient logger.Logger, action domain.Action, out io.Writer, opts ActionOptions) error {
	loggerClient = loggerClient.With(logger.String("action", action.String()))

	registry := keymap.NewRegistry()
	if cfg.KeymapFile != "" {
		bindings, err := keymap.NewLoader(cfg.KeymapFile).Load()
		if err != nil {
			loggerClient.Warn("failed to load keymap, using built-in buttons", logger.Error(err))
		} else {
			registry.Update(bindings, cfg.KeymapFile)
		}
	}

	notifiers := notify.Multi{notify.NewLogNotifier(loggerClient.Named("notify"))}
	if !opts.JSON {
		notifiers = append(notifiers, notify.NewWriterNotifier(out))
	}

	var redisClient *goredis.Client
	if cfg.RedisEnabled() {
		client, err := redis.Connect(ctx, redisOptions(cfg), loggerClient)
		if err != nil {
			loggerClient.Warn("on-screen notification skipped", logger.Error(err))
		} else {
			redisClient = client
			store := redisstore.NewStore(client, cfg.NotifyChannel)
			notifiers = append(notifiers, newRedisNotifier(cfg, store, loggerClient))
		}
	}
	defer func() {
		if redisClient != nil {
			_ = redisClient.Close()
		}
	}()

	ctrl, err := newController(cfg, registry, notifiers, loggerClient)
	if err != nil {
		return err
	}

	info, probed, err := ctrl.Dispatch(ctx, action)
	if err != nil {
		return err
	}

	if !opts.JSON {
		return nil
	}

	var payload any = info
	if !probed {
		payload = map[string]string{
			"action": action.String(),
			"help":   keymap.HelpText(cfg.Title, registry.All()),
		}
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return nil
}
