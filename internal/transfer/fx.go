package transfer

import (
	"github.com/stridehq/stride/internal/transfer/repository"
	"github.com/stridehq/stride/internal/transfer/service"
	"go.uber.org/fx"
)

var Module = fx.Module("transfer",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
