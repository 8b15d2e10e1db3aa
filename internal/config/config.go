// Package config defines the top-level configuration for the sniper bot and
// provides validation helpers.
package config

import (
	"fmt"
	"time"
)

// WrappedSOLMint is the mint address of wrapped SOL, the quote side of every
// swap this bot performs.
const WrappedSOLMint = "So11111111111111111111111111111111111111112"

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by SNIPER_* environment variables.
type Config struct {
	Wallet   WalletConfig   `toml:"wallet"`
	Solana   SolanaConfig   `toml:"solana"`
	Jupiter  JupiterConfig  `toml:"jupiter"`
	Birdeye  BirdeyeConfig  `toml:"birdeye"`
	Redis    RedisConfig    `toml:"redis"`
	Trading  TradingConfig  `toml:"trading"`
	Monitor  MonitorConfig  `toml:"monitor"`
	Telegram TelegramConfig `toml:"telegram"`
	LogLevel string         `toml:"log_level"`
}

// WalletConfig holds the Solana signing credential. Exactly one of PrivateKey
// (base58 or JSON byte-array keypair) or EncryptedKeyPath must be set.
type WalletConfig struct {
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// SolanaConfig holds ledger RPC parameters.
type SolanaConfig struct {
	RPCURL     string `toml:"rpc_url"`
	Commitment string `toml:"commitment"`
}

// JupiterConfig holds the aggregator quote/swap and price API endpoints.
type JupiterConfig struct {
	BaseURL       string `toml:"base_url"`
	PriceURL      string `toml:"price_url"`
	MaxConcurrent int64  `toml:"max_concurrent"`
}

// BirdeyeConfig holds the fallback price source. MinLiquidity is the quote
// volume below which a token is refused before buying.
type BirdeyeConfig struct {
	BaseURL      string  `toml:"base_url"`
	WSURL        string  `toml:"ws_url"`
	APIKey       string  `toml:"api_key"`
	MinLiquidity float64 `toml:"min_liquidity"`
}

// RedisConfig holds the optional price-cache connection. An empty Addr
// disables the cache and the bot falls back to direct REST lookups.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PriceTTLMs int    `toml:"price_ttl_ms"`
}

// TradingConfig holds the swap pipeline parameters. Slippage is expressed in
// basis points; the sell side is wider because full-liquidation urgency
// outweighs price precision.
type TradingConfig struct {
	SpendSOL        float64 `toml:"spend_sol"`
	BuySlippageBps  int     `toml:"buy_slippage_bps"`
	SellSlippageBps int     `toml:"sell_slippage_bps"`
	TokenDecimals   int     `toml:"token_decimals"`
}

// MonitorConfig holds the exit policy: threshold multipliers applied to the
// entry price, the holding-time ceiling, and the polling cadence.
type MonitorConfig struct {
	TakeProfitMult  float64 `toml:"take_profit_mult"`
	StopLossMult    float64 `toml:"stop_loss_mult"`
	MaxDurationSec  int     `toml:"max_duration_sec"`
	PollIntervalMs  int     `toml:"poll_interval_ms"`
	MaxPriceRetries int     `toml:"max_price_retries"`
}

// TelegramConfig holds the bot token used for both command intake and
// notifications, and the numeric user IDs allowed to trigger trades. An empty
// allow-list denies everyone.
type TelegramConfig struct {
	BotToken       string   `toml:"bot_token"`
	ChatID         string   `toml:"chat_id"`
	AllowedUserIDs []string `toml:"allowed_user_ids"`
}

// Defaults returns a Config populated with the built-in defaults. Load merges
// the TOML file and environment overrides on top of this.
func Defaults() Config {
	return Config{
		Solana: SolanaConfig{
			Commitment: "confirmed",
		},
		Jupiter: JupiterConfig{
			BaseURL:       "https://quote-api.jup.ag/v6",
			PriceURL:      "https://api.jup.ag/price/v2",
			MaxConcurrent: 30,
		},
		Birdeye: BirdeyeConfig{
			BaseURL:      "https://public-api.birdeye.so",
			WSURL:        "wss://public-api.birdeye.so/ws",
			MinLiquidity: 1000,
		},
		Redis: RedisConfig{
			PriceTTLMs: 10_000,
		},
		Trading: TradingConfig{
			SpendSOL:        0.1,
			BuySlippageBps:  500,
			SellSlippageBps: 1000,
			TokenDecimals:   6,
		},
		Monitor: MonitorConfig{
			TakeProfitMult:  1.2,
			StopLossMult:    0.9,
			MaxDurationSec:  1800,
			PollIntervalMs:  5000,
			MaxPriceRetries: 3,
		},
		LogLevel: "info",
	}
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	if c.Solana.RPCURL == "" {
		return fmt.Errorf("config: solana.rpc_url is required")
	}
	if c.Wallet.PrivateKey == "" && c.Wallet.EncryptedKeyPath == "" {
		return fmt.Errorf("config: wallet.private_key or wallet.encrypted_key_path is required")
	}
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("config: telegram.bot_token is required")
	}
	if c.Trading.SpendSOL <= 0 {
		return fmt.Errorf("config: trading.spend_sol must be positive, got %v", c.Trading.SpendSOL)
	}
	if c.Trading.BuySlippageBps <= 0 || c.Trading.SellSlippageBps <= 0 {
		return fmt.Errorf("config: slippage tolerances must be positive")
	}
	if c.Trading.TokenDecimals < 0 {
		return fmt.Errorf("config: trading.token_decimals must not be negative")
	}
	if c.Monitor.TakeProfitMult <= 1 {
		return fmt.Errorf("config: monitor.take_profit_mult must exceed 1, got %v", c.Monitor.TakeProfitMult)
	}
	if c.Monitor.StopLossMult <= 0 || c.Monitor.StopLossMult >= 1 {
		return fmt.Errorf("config: monitor.stop_loss_mult must be in (0, 1), got %v", c.Monitor.StopLossMult)
	}
	if c.Monitor.MaxDurationSec <= 0 {
		return fmt.Errorf("config: monitor.max_duration_sec must be positive")
	}
	if c.Monitor.PollIntervalMs <= 0 {
		return fmt.Errorf("config: monitor.poll_interval_ms must be positive")
	}
	switch c.Solana.Commitment {
	case "processed", "confirmed", "finalized":
	default:
		return fmt.Errorf("config: unsupported solana.commitment %q", c.Solana.Commitment)
	}
	return nil
}

// PollInterval returns the monitor polling cadence as a Duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Monitor.PollIntervalMs) * time.Millisecond
}

// MaxDuration returns the holding-time ceiling as a Duration.
func (c *Config) MaxDuration() time.Duration {
	return time.Duration(c.Monitor.MaxDurationSec) * time.Second
}

// PriceTTL returns how long a cached price is considered fresh.
func (c *Config) PriceTTL() time.Duration {
	return time.Duration(c.Redis.PriceTTLMs) * time.Millisecond
}
