package config

// RedactedConfig returns a shallow copy of cfg with sensitive fields replaced
// by the redaction placeholder "***". Use this when logging or printing the
// active configuration so the signing key and API tokens are never exposed.
func RedactedConfig(cfg *Config) Config {
	out := *cfg

	redact(&out.Wallet.PrivateKey)
	redact(&out.Wallet.KeyPassword)
	redact(&out.Birdeye.APIKey)
	redact(&out.Redis.Password)
	redact(&out.Telegram.BotToken)

	// Copy the slice so callers cannot mutate the original through the
	// redacted copy.
	if cfg.Telegram.AllowedUserIDs != nil {
		out.Telegram.AllowedUserIDs = make([]string, len(cfg.Telegram.AllowedUserIDs))
		copy(out.Telegram.AllowedUserIDs, cfg.Telegram.AllowedUserIDs)
	}

	return out
}

func redact(s *string) {
	if *s != "" {
		*s = "***"
	}
}
