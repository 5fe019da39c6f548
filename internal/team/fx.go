package team

import (
	"github.com/stridehq/stride/internal/team/repository"
	"github.com/stridehq/stride/internal/team/service"
	"go.uber.org/fx"
)

var Module = fx.Module("team",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
