package config

import "context"

type configContextKey struct{}

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey{}, cfg)
}

// FromContext returns the config stored by WithContext, or the defaults.
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configContextKey{}).(*Config); ok && cfg != nil {
		return cfg
	}
	return Default()
}
