package workers

import (
	"context"

	"go.uber.org/fx"
)

// Module provides the transfer scheduler for fx DI
var Module = fx.Module("transfer-workers",
	fx.Provide(NewScheduler),
	fx.Invoke(registerLifecycle),
)

// registerLifecycle cancels in-flight transfers on shutdown
func registerLifecycle(lc fx.Lifecycle, s *Scheduler) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return s.Stop(ctx)
		},
	})
}
