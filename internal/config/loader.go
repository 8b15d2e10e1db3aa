package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies SNIPER_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known SNIPER_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This lets
// operators inject secrets at deploy time without touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Wallet ──
	setStr(&cfg.Wallet.PrivateKey, "SNIPER_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.EncryptedKeyPath, "SNIPER_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "SNIPER_WALLET_KEY_PASSWORD")

	// ── Solana ──
	setStr(&cfg.Solana.RPCURL, "SNIPER_SOLANA_RPC_URL")
	setStr(&cfg.Solana.Commitment, "SNIPER_SOLANA_COMMITMENT")

	// ── Jupiter ──
	setStr(&cfg.Jupiter.BaseURL, "SNIPER_JUPITER_BASE_URL")
	setStr(&cfg.Jupiter.PriceURL, "SNIPER_JUPITER_PRICE_URL")
	setInt64(&cfg.Jupiter.MaxConcurrent, "SNIPER_JUPITER_MAX_CONCURRENT")

	// ── Birdeye ──
	setStr(&cfg.Birdeye.BaseURL, "SNIPER_BIRDEYE_BASE_URL")
	setStr(&cfg.Birdeye.WSURL, "SNIPER_BIRDEYE_WS_URL")
	setStr(&cfg.Birdeye.APIKey, "SNIPER_BIRDEYE_API_KEY")
	setFloat(&cfg.Birdeye.MinLiquidity, "SNIPER_BIRDEYE_MIN_LIQUIDITY")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "SNIPER_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "SNIPER_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "SNIPER_REDIS_DB")
	setInt(&cfg.Redis.PriceTTLMs, "SNIPER_REDIS_PRICE_TTL_MS")

	// ── Trading ──
	setFloat(&cfg.Trading.SpendSOL, "SNIPER_TRADING_SPEND_SOL")
	setInt(&cfg.Trading.BuySlippageBps, "SNIPER_TRADING_BUY_SLIPPAGE_BPS")
	setInt(&cfg.Trading.SellSlippageBps, "SNIPER_TRADING_SELL_SLIPPAGE_BPS")
	setInt(&cfg.Trading.TokenDecimals, "SNIPER_TRADING_TOKEN_DECIMALS")

	// ── Monitor ──
	setFloat(&cfg.Monitor.TakeProfitMult, "SNIPER_MONITOR_TAKE_PROFIT_MULT")
	setFloat(&cfg.Monitor.StopLossMult, "SNIPER_MONITOR_STOP_LOSS_MULT")
	setInt(&cfg.Monitor.MaxDurationSec, "SNIPER_MONITOR_MAX_DURATION_SEC")
	setInt(&cfg.Monitor.PollIntervalMs, "SNIPER_MONITOR_POLL_INTERVAL_MS")
	setInt(&cfg.Monitor.MaxPriceRetries, "SNIPER_MONITOR_MAX_PRICE_RETRIES")

	// ── Telegram ──
	setStr(&cfg.Telegram.BotToken, "SNIPER_TELEGRAM_BOT_TOKEN")
	setStr(&cfg.Telegram.ChatID, "SNIPER_TELEGRAM_CHAT_ID")
	setStrSlice(&cfg.Telegram.AllowedUserIDs, "SNIPER_TELEGRAM_ALLOWED_USER_IDS")

	// ── Misc ──
	setStr(&cfg.LogLevel, "SNIPER_LOG_LEVEL")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setStrSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		*dst = out
	}
}
