package athlete

import (
	"github.com/stridehq/stride/internal/athlete/domain"
	"github.com/stridehq/stride/internal/athlete/repository"
	"github.com/stridehq/stride/internal/athlete/service"
	teamdomain "github.com/stridehq/stride/internal/team/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("athlete",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
	fx.Provide(func(r domain.Repository) teamdomain.RosterCounter { return r }),
)
