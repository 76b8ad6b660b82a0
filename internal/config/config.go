package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"pulsepact/internal/domain"
	"pulsepact/internal/pact"
)

const fileName = "pulsepact.yml"

// Config models pulsepact.yml.
type Config struct {
	Wallet struct {
		InitialBalance float64 `yaml:"initial_balance"`
		AddFundsAmount float64 `yaml:"add_funds_amount"`
	} `yaml:"wallet"`
	Rewards struct {
		// CompletionRate is the share of the target credited on completion.
		CompletionRate float64 `yaml:"completion_rate"`
	} `yaml:"rewards"`
	Policy struct {
		Overstake               string `yaml:"overstake"`
		EnforceTargetOnComplete bool   `yaml:"enforce_target_on_complete"`
	} `yaml:"policy"`
	Currency struct {
		Default      string  `yaml:"default"`
		ExchangeRate float64 `yaml:"exchange_rate"`
	} `yaml:"currency"`
	Reminders struct {
		WindowDays int    `yaml:"window_days"`
		Schedule   string `yaml:"schedule"`
	} `yaml:"reminders"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Validate ensures the config values are usable.
func (c *Config) Validate() error {
	if c.Wallet.InitialBalance < 0 {
		return fmt.Errorf("config.wallet.initial_balance must not be negative")
	}
	if c.Wallet.AddFundsAmount <= 0 {
		return fmt.Errorf("config.wallet.add_funds_amount must be positive")
	}
	if c.Rewards.CompletionRate < 0 {
		return fmt.Errorf("config.rewards.completion_rate must not be negative")
	}
	if _, err := pact.ParseOverstakePolicy(c.Policy.Overstake); err != nil {
		return fmt.Errorf("config.policy.overstake: %w", err)
	}
	if !domain.CurrencyUnit(c.Currency.Default).Valid() {
		return fmt.Errorf("config.currency.default must be ADA or NGN")
	}
	if c.Currency.ExchangeRate <= 0 {
		return fmt.Errorf("config.currency.exchange_rate must be positive")
	}
	if c.Reminders.WindowDays < 0 {
		return fmt.Errorf("config.reminders.window_days must not be negative")
	}
	if c.RemindersScheduled() {
		if _, err := cron.ParseStandard(c.Reminders.Schedule); err != nil {
			return fmt.Errorf("config.reminders.schedule: %w", err)
		}
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("config.log.format must be text or json")
	}
	return nil
}

// RemindersScheduled reports whether a cron schedule for deadline reminders
// is set. An empty schedule turns the job off.
func (c *Config) RemindersScheduled() bool {
	return strings.TrimSpace(c.Reminders.Schedule) != ""
}

// PactPolicy converts the policy block for the pact registry.
func (c *Config) PactPolicy() pact.Policy {
	overstake, _ := pact.ParseOverstakePolicy(c.Policy.Overstake)
	return pact.Policy{Overstake: overstake, EnforceTargetOnComplete: c.Policy.EnforceTargetOnComplete}
}

func (c *Config) InitialBalance() decimal.Decimal {
	return decimal.NewFromFloat(c.Wallet.InitialBalance)
}

func (c *Config) AddFundsAmount() decimal.Decimal {
	return decimal.NewFromFloat(c.Wallet.AddFundsAmount)
}

func (c *Config) CompletionRate() decimal.Decimal {
	return decimal.NewFromFloat(c.Rewards.CompletionRate)
}

func (c *Config) DefaultCurrency() domain.CurrencyPreference {
	return domain.CurrencyPreference{
		Unit:         domain.CurrencyUnit(c.Currency.Default),
		ExchangeRate: decimal.NewFromFloat(c.Currency.ExchangeRate),
	}
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, fileName)
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Load reads the workspace config, falling back to defaults when the file is
// absent.
func Load(workspace string) (*Config, error) {
	cfg, err := LoadOptional(workspace)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return Default(), nil
	}
	return cfg, nil
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	cfg, err := FromYAML(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Default returns the default Config.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes. Keys missing from
// data keep their default values.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// WriteDefault creates pulsepact.yml in workspace unless it already exists.
func WriteDefault(workspace string) (string, error) {
	path := Path(workspace)
	if _, err := os.Stat(path); err == nil {
		return path, fmt.Errorf("config %s already exists", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return path, err
	}
	return path, os.WriteFile(path, []byte(defaultTemplate), 0o644)
}

const defaultTemplate = `wallet:
  initial_balance: 10000
  add_funds_amount: 1000

rewards:
  completion_rate: 0.10

policy:
  # allow | clamp | reject
  overstake: allow
  enforce_target_on_complete: false

currency:
  # ADA | NGN
  default: ADA
  exchange_rate: 1500

reminders:
  window_days: 3
  schedule: "0 9 * * *"

log:
  level: info
  format: text
`
