package version

import (
	"fmt"
	"runtime"
	"time"
)

// Set at build time with -ldflags "-X github.com/MrSnakeDoc/madvpn/internal/version.Version=...".
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = time.Now().Format(time.RFC3339)
	GoVersion = runtime.Version()
)

// String is the one-line build description shown by --version and at startup.
func String() string {
	return fmt.Sprintf("%s (commit=%s, built=%s, %s)", Version, Commit, BuildDate, GoVersion)
}
