package main

import (
	"bytes"
	"testing"
)

func TestRootCommandTree(t *testing.T) {
	root := newRootCmd()

	want := []string{"serve", "status", "start", "stop", "info"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil {
			t.Errorf("Find(%q) error = %v", name, err)
			continue
		}
		if cmd.Name() != name {
			t.Errorf("Find(%q) = %q", name, cmd.Name())
		}
	}

	status, _, _ := root.Find([]string{"status"})
	if status.Flags().Lookup("json") == nil {
		t.Error("status command has no --json flag")
	}
}

func TestRootCommandRejectsArgs(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"status", "extra"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})

	if err := root.Execute(); err == nil {
		t.Error("Execute() should reject positional arguments")
	}
}

func TestSetupLogLevel(t *testing.T) {
	tests := []struct {
		name     string
		env      string
		flag     string
		fallback string
		want     string
	}{
		{name: "one-shot default", env: "", fallback: "warn", want: "warn"},
		{name: "explicit info is kept", env: "info", fallback: "warn", want: "info"},
		{name: "explicit debug is kept", env: "debug", fallback: "warn", want: "debug"},
		{name: "flag wins", env: "info", flag: "error", fallback: "warn", want: "error"},
		{name: "daemon default", env: "", fallback: "", want: "info"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("MADVPN_LOG_LEVEL", tt.env)

			cfg, log, err := setup(&rootFlags{logLevel: tt.flag}, tt.fallback)
			if err != nil {
				t.Fatalf("setup() error = %v", err)
			}
			defer func() { _ = log.Sync() }()

			if cfg.LogLevel != tt.want {
				t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, tt.want)
			}
		})
	}
}
