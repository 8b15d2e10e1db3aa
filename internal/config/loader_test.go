package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalTOML = `
log_level = "debug"

[wallet]
private_key = "base58secret"

[solana]
rpc_url = "https://rpc.example.com"

[telegram]
bot_token = "123:abc"
chat_id = "42"
allowed_user_ids = ["1001", "1002"]
`

func TestLoad_MergesFileOverDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalTOML))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.Solana.RPCURL != "https://rpc.example.com" {
		t.Errorf("RPCURL = %q", cfg.Solana.RPCURL)
	}
	// Untouched sections keep the defaults.
	if cfg.Trading.SpendSOL != 0.1 {
		t.Errorf("SpendSOL = %v, want default 0.1", cfg.Trading.SpendSOL)
	}
	if cfg.Monitor.TakeProfitMult != 1.2 || cfg.Monitor.StopLossMult != 0.9 {
		t.Errorf("exit multipliers = %v/%v, want 1.2/0.9",
			cfg.Monitor.TakeProfitMult, cfg.Monitor.StopLossMult)
	}
	if cfg.Monitor.MaxDurationSec != 1800 {
		t.Errorf("MaxDurationSec = %d, want 1800", cfg.Monitor.MaxDurationSec)
	}
	if len(cfg.Telegram.AllowedUserIDs) != 2 {
		t.Errorf("AllowedUserIDs = %v", cfg.Telegram.AllowedUserIDs)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SNIPER_SOLANA_RPC_URL", "https://override.example.com")
	t.Setenv("SNIPER_TRADING_SPEND_SOL", "0.25")
	t.Setenv("SNIPER_TELEGRAM_ALLOWED_USER_IDS", "7, 8 ,9")

	cfg, err := Load(writeConfig(t, minimalTOML))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Solana.RPCURL != "https://override.example.com" {
		t.Errorf("RPCURL = %q, env override not applied", cfg.Solana.RPCURL)
	}
	if cfg.Trading.SpendSOL != 0.25 {
		t.Errorf("SpendSOL = %v, want 0.25", cfg.Trading.SpendSOL)
	}
	want := []string{"7", "8", "9"}
	if len(cfg.Telegram.AllowedUserIDs) != len(want) {
		t.Fatalf("AllowedUserIDs = %v, want %v", cfg.Telegram.AllowedUserIDs, want)
	}
	for i, id := range want {
		if cfg.Telegram.AllowedUserIDs[i] != id {
			t.Errorf("AllowedUserIDs[%d] = %q, want %q", i, cfg.Telegram.AllowedUserIDs[i], id)
		}
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Defaults()
		cfg.Solana.RPCURL = "https://rpc.example.com"
		cfg.Wallet.PrivateKey = "base58secret"
		cfg.Telegram.BotToken = "123:abc"
		return &cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"missing rpc url", func(c *Config) { c.Solana.RPCURL = "" }, true},
		{"missing key source", func(c *Config) { c.Wallet.PrivateKey = "" }, true},
		{"missing bot token", func(c *Config) { c.Telegram.BotToken = "" }, true},
		{"zero spend", func(c *Config) { c.Trading.SpendSOL = 0 }, true},
		{"take profit below entry", func(c *Config) { c.Monitor.TakeProfitMult = 0.8 }, true},
		{"stop loss above entry", func(c *Config) { c.Monitor.StopLossMult = 1.1 }, true},
		{"bad commitment", func(c *Config) { c.Solana.Commitment = "eventual" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg := Defaults()
	if cfg.PollInterval() != 5*time.Second {
		t.Errorf("PollInterval() = %v, want 5s", cfg.PollInterval())
	}
	if cfg.MaxDuration() != 30*time.Minute {
		t.Errorf("MaxDuration() = %v, want 30m", cfg.MaxDuration())
	}
	if cfg.PriceTTL() != 10*time.Second {
		t.Errorf("PriceTTL() = %v, want 10s", cfg.PriceTTL())
	}
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Wallet.PrivateKey = "secret"
	cfg.Wallet.KeyPassword = "hunter2"
	cfg.Birdeye.APIKey = "birdeye-key"
	cfg.Redis.Password = "redis-pass"
	cfg.Telegram.BotToken = "123:abc"

	red := RedactedConfig(&cfg)
	for name, v := range map[string]string{
		"wallet.private_key":  red.Wallet.PrivateKey,
		"wallet.key_password": red.Wallet.KeyPassword,
		"birdeye.api_key":     red.Birdeye.APIKey,
		"redis.password":      red.Redis.Password,
		"telegram.bot_token":  red.Telegram.BotToken,
	} {
		if v == "" || v == "secret" || v == "hunter2" || v == "birdeye-key" || v == "redis-pass" || v == "123:abc" {
			t.Errorf("%s not redacted: %q", name, v)
		}
	}
	// The original must be untouched.
	if cfg.Wallet.PrivateKey != "secret" {
		t.Error("RedactedConfig mutated the original")
	}
}
