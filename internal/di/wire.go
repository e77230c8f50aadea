//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"github.com/toolvault/toolvault/internal/app"
)

func InitializeApp() (*app.App, error) {
	wire.Build(
		ConfigSet,
		ObservabilitySet,
		RuntimeInfraSet,
		RepositorySet,
		SecuritySet,
		ServiceSet,
		HTTPSet,
		AppSet,
	)
	return nil, nil
}
