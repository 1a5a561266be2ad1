//go:build wireinject
// +build wireinject

package app

import (
	"github.com/coursepay/server/internal/shared/config"
	"github.com/google/wire"
)

// InitializeDependencies creates all dependencies using Wire.
func InitializeDependencies(cfg *config.Config) (*Dependencies, func(), error) {
	wire.Build(
		AppSet,
		wire.Struct(new(Dependencies), "*"),
	)
	return nil, nil, nil
}
