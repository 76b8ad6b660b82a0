package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pulsepact/internal/config"
	"pulsepact/internal/domain"
	"pulsepact/internal/pact"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Wallet.InitialBalance != 10000 || cfg.Wallet.AddFundsAmount != 1000 {
		t.Fatalf("wallet defaults %+v", cfg.Wallet)
	}
	if cfg.PactPolicy().Overstake != pact.OverstakeAllow || cfg.PactPolicy().EnforceTargetOnComplete {
		t.Fatalf("policy defaults %+v", cfg.PactPolicy())
	}
	if cfg.DefaultCurrency().Unit != domain.CurrencyADA || cfg.Reminders.WindowDays != 3 {
		t.Fatalf("currency/reminder defaults %+v %+v", cfg.Currency, cfg.Reminders)
	}
	if cfg.CompletionRate().String() != "0.1" {
		t.Fatalf("completion rate %s", cfg.CompletionRate())
	}
}

func TestFromYAMLOverlaysDefaults(t *testing.T) {
	cfg, err := config.FromYAML([]byte("policy:\n  overstake: clamp\ncurrency:\n  exchange_rate: 1600\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.PactPolicy().Overstake != pact.OverstakeClamp {
		t.Fatalf("overstake %q", cfg.Policy.Overstake)
	}
	if cfg.Currency.ExchangeRate != 1600 || cfg.Currency.Default != "ADA" {
		t.Fatalf("currency %+v", cfg.Currency)
	}
	if cfg.Wallet.InitialBalance != 10000 {
		t.Fatalf("unset keys must keep defaults")
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"overstake":     "policy:\n  overstake: cap\n",
		"currency":      "currency:\n  default: EUR\n",
		"exchange_rate": "currency:\n  exchange_rate: 0\n",
		"schedule":      "reminders:\n  schedule: \"every day\"\n",
		"add_funds":     "wallet:\n  add_funds_amount: -5\n",
		"format":        "log:\n  format: xml\n",
	}
	for name, body := range cases {
		if _, err := config.FromYAML([]byte(body)); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestEmptyScheduleDisablesReminders(t *testing.T) {
	if !config.Default().RemindersScheduled() {
		t.Fatalf("default config must schedule reminders")
	}
	for _, body := range []string{"reminders:\n  schedule: \"\"\n", "reminders:\n  schedule: \"  \"\n"} {
		cfg, err := config.FromYAML([]byte(body))
		if err != nil {
			t.Fatalf("empty schedule rejected: %v", err)
		}
		if cfg.RemindersScheduled() {
			t.Fatalf("schedule %q must disable reminders", cfg.Reminders.Schedule)
		}
	}
}

func TestLoadAndWriteDefault(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(dir)
	if err != nil || cfg == nil {
		t.Fatalf("load without file: %v", err)
	}
	if opt, err := config.LoadOptional(dir); err != nil || opt != nil {
		t.Fatalf("optional without file: %v %v", opt, err)
	}
	path, err := config.WriteDefault(dir)
	if err != nil {
		t.Fatalf("write default: %v", err)
	}
	if path != filepath.Join(dir, "pulsepact.yml") {
		t.Fatalf("path %s", path)
	}
	if _, err := config.WriteDefault(dir); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected already exists, got %v", err)
	}
	if err := os.WriteFile(path, []byte("policy:\n  overstake: reject\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err = config.Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.PactPolicy().Overstake != pact.OverstakeReject {
		t.Fatalf("overstake %q", cfg.Policy.Overstake)
	}
}
