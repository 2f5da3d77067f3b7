// Package batch contains the batch range controller
package batch

import (
	"go.uber.org/fx"

	"github.com/Conte777/media-relay/internal/domain/batch/deps"
	"github.com/Conte777/media-relay/internal/domain/batch/usecase/business"
	relaybusiness "github.com/Conte777/media-relay/internal/domain/relay/usecase/business"
)

// Module provides batch domain components for fx DI
var Module = fx.Module("batch",
	fx.Provide(
		// Provide Relayer interface backed by the relay pipeline
		func(uc *relaybusiness.UseCase) deps.Relayer {
			return uc
		},
		business.NewUseCase,
	),
)
