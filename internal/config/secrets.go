package config

// RedactedConfig returns a shallow copy of cfg with sensitive fields replaced
// by the redaction placeholder "***". Use this when logging or printing the
// active configuration so secrets are never accidentally exposed.
func RedactedConfig(cfg *Config) Config {
	out := *cfg // shallow copy of the top-level struct

	// Postgres
	out.Postgres = cfg.Postgres
	redact(&out.Postgres.DSN)
	redact(&out.Postgres.Password)

	// Redis
	out.Redis = cfg.Redis
	redact(&out.Redis.Password)

	// S3
	out.S3 = cfg.S3
	redact(&out.S3.AccessKey)
	redact(&out.S3.SecretKey)

	// Copy maps and slices so callers cannot mutate the original through the
	// redacted copy.
	if cfg.Fees.Platforms != nil {
		out.Fees.Platforms = make(map[string]FeeScheduleConfig, len(cfg.Fees.Platforms))
		for k, v := range cfg.Fees.Platforms {
			out.Fees.Platforms[k] = v
		}
	}
	if cfg.Categories != nil {
		out.Categories = make(map[string]CategoryConfig, len(cfg.Categories))
		for k, v := range cfg.Categories {
			if v.Conditions != nil {
				conditions := make(map[string]float64, len(v.Conditions))
				for tag, mult := range v.Conditions {
					conditions[tag] = mult
				}
				v.Conditions = conditions
			}
			out.Categories[k] = v
		}
	}
	if cfg.Damage != nil {
		out.Damage = make([]DamageEntry, len(cfg.Damage))
		copy(out.Damage, cfg.Damage)
	}

	return out
}

const redacted = "***"

// redact replaces a non-empty string with the redacted placeholder.
func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}
