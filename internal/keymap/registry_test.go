package keymap

import (
	"testing"

	"github.com/MrSnakeDoc/madvpn/internal/domain"
)

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		key    string
		want   domain.Action
		wantOK bool
	}{
		{key: "red", want: domain.ActionStatus, wantOK: true},
		{key: " GREEN ", want: domain.ActionStart, wantOK: true},
		{key: "0xF045", want: domain.ActionStop, wantOK: true},
		{key: "0xf043", want: domain.ActionStatus, wantOK: true},
		{key: "61508", want: domain.ActionStart, wantOK: true},
		{key: "blue", wantOK: false},
		{key: "0", wantOK: false},
		{key: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			b, ok := r.Lookup(tt.key)
			if ok != tt.wantOK {
				t.Fatalf("Lookup(%q) ok = %v, want %v", tt.key, ok, tt.wantOK)
			}
			if ok && b.Action != tt.want {
				t.Errorf("Lookup(%q) action = %v, want %v", tt.key, b.Action, tt.want)
			}
		})
	}
}

func TestRegistryUpdate(t *testing.T) {
	r := NewRegistry()
	before := r.LastReload()

	r.Update([]Binding{{Button: "blue", Action: domain.ActionInfo}}, "/etc/madvpn/keymap.yaml")

	if r.Count() != 1 {
		t.Errorf("Count() = %d, want 1", r.Count())
	}
	if r.Source() != "/etc/madvpn/keymap.yaml" {
		t.Errorf("Source() = %q", r.Source())
	}
	if r.LastReload().Before(before) {
		t.Error("LastReload() went backwards")
	}
	if _, ok := r.Lookup("red"); ok {
		t.Error("old binding still resolvable after Update")
	}
	if b, ok := r.Lookup("blue"); !ok || b.Action != domain.ActionInfo {
		t.Errorf("Lookup(blue) = %+v, %v", b, ok)
	}
}

func TestRegistryAllReturnsCopy(t *testing.T) {
	r := NewRegistry()
	all := r.All()
	all[0].Button = "mutated"

	if r.All()[0].Button != "red" {
		t.Error("All() exposed internal slice")
	}
}

func TestHelpText(t *testing.T) {
	got := HelpText("MAD VPN", Default())
	want := "MAD VPN Controller is running as a service.\n\n" +
		"Use your remote control:\n" +
		"RED button - Check VPN status\n" +
		"GREEN button - Start VPN\n" +
		"YELLOW button - Stop VPN"
	if got != want {
		t.Errorf("HelpText() = %q, want %q", got, want)
	}

	empty := HelpText("MAD VPN", nil)
	if empty != "MAD VPN Controller is running as a service.\n\nNo remote buttons are configured." {
		t.Errorf("HelpText(nil) = %q", empty)
	}
}
