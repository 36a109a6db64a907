package app

import (
	"context"

	"tradepilot/internal/config"
)

func provideAppBuilder(cfg *config.Config) *Builder {
	return NewBuilder(cfg)
}

func provideAppFromBuilder(ctx context.Context, b *Builder) (*App, error) {
	return b.Build(ctx)
}
