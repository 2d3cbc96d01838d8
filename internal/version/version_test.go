package version

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	Version, Commit = "v1.2.3", "abc1234"
	t.Cleanup(func() { Version, Commit = "dev", "none" })

	got := String()
	for _, want := range []string{"v1.2.3", "commit=abc1234", GoVersion} {
		if !strings.Contains(got, want) {
			t.Errorf("String() = %q, missing %q", got, want)
		}
	}
}
