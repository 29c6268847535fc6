package cmd

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/spf13/pflag"

	"github.com/marcus/modalkit/internal/config"
)

func newSetFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	f := pflag.NewFlagSet("set", pflag.ContinueOnError)
	f.String("confirm-header", "", "")
	f.String("confirm-body", "", "")
	f.String("confirm-text", "", "")
	f.String("cancel-text", "", "")
	f.Int("fade-ms", 0, "")
	if err := f.Parse(args); err != nil {
		t.Fatalf("parse %v: %v", args, err)
	}
	return f
}

func TestSetConfigOnlyChangedFlags(t *testing.T) {
	dir := t.TempDir()
	if err := config.Save(dir, &config.Config{CancelText: "Abort"}); err != nil {
		t.Fatal(err)
	}

	if err := setConfig(dir, newSetFlags(t, "--confirm-text", "Yes", "--fade-ms", "150")); err != nil {
		t.Fatalf("setConfig: %v", err)
	}

	cfg, err := config.Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ConfirmText != "Yes" || cfg.FadeMS != 150 {
		t.Errorf("cfg = %+v, want confirm text and fade set", cfg)
	}
	if cfg.CancelText != "Abort" {
		t.Errorf("CancelText = %q, untouched field should survive", cfg.CancelText)
	}
	if cfg.ConfirmHeader != "" {
		t.Errorf("ConfirmHeader = %q, unset flag should not be written", cfg.ConfirmHeader)
	}
}

func TestSetConfigRejectsNegativeFade(t *testing.T) {
	if err := setConfig(t.TempDir(), newSetFlags(t, "--fade-ms", "-5")); err == nil {
		t.Error("expected error for negative fade")
	}
}

func TestShowConfigFillsDefaults(t *testing.T) {
	dir := t.TempDir()
	if err := config.Save(dir, &config.Config{ConfirmText: "OK"}); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := showConfig(&buf, dir); err != nil {
		t.Fatal(err)
	}

	var got config.Config
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if got.ConfirmText != "OK" {
		t.Errorf("ConfirmText = %q", got.ConfirmText)
	}
	if got.CancelText != config.DefaultCancelText || got.FadeMS != config.DefaultFadeMS {
		t.Errorf("defaults not filled: %+v", got)
	}
}
