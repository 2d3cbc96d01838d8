package deps

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/madvpn/internal/domain"
	"github.com/MrSnakeDoc/madvpn/internal/keymap"
	"github.com/MrSnakeDoc/madvpn/internal/logger"
	"github.com/MrSnakeDoc/madvpn/internal/probe"
)

// Dispatcher runs a remote action. Implemented by *controller.Controller.
type Dispatcher interface {
	Dispatch(ctx context.Context, action domain.Action) (probe.StatusInfo, bool, error)
}

// NotificationDisplay reads and dismisses the on-screen notification.
// Implemented by the redis store.
type NotificationDisplay interface {
	CurrentNotification(ctx context.Context) (*domain.Notification, error)
	LastActionNotification(ctx context.Context, action domain.Action) (*domain.Notification, error)
	ClearNotification(ctx context.Context) error
}

type Deps struct {
	Logger         logger.Logger
	StartTime      time.Time
	Version        string
	Commit         string
	BuildDate      string
	GoVersion      string
	TimeNow        func() time.Time    // for testing, defaults to time.Now
	AllowedHosts   []string            // Host headers allowed on action endpoints
	AllowedCIDRS   []string            // IPs allowed to trigger actions and read infra
	TrustProxy     bool                // true if running behind a trusted reverse proxy
	RateBurst      int                 // per-IP burst for action endpoints
	RatePerMin     int                 // per-IP refill for action endpoints
	Controller     Dispatcher          // runs info/status/start/stop
	Keymap         *keymap.Registry    // active remote keymap
	KeyRepeatDelay time.Duration       // minimum delay between two presses of the same button
	ServiceManager string              // service manager binary, ex: systemctl
	ServiceUnit    string              // unit name, ex: openvpn.service
	RedisClient    *redis.Client       // nil when redis is disabled
	NotifierState  func() string       // redis notifier breaker state, nil when redis is disabled
	Display        NotificationDisplay // nil when redis is disabled
	ReloadTrigger  chan struct{}       // Channel to trigger manual keymap reload

	// for testing, defaults to exec.LookPath
	LookPath func(string) (string, error)
}
