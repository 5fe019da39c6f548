package registration

import (
	"github.com/stridehq/stride/internal/registration/repository"
	"github.com/stridehq/stride/internal/registration/service"
	"go.uber.org/fx"
)

var Module = fx.Module("registration",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
