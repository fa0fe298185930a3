package scheduler

import (
	"context"

	invoicedomain "github.com/samatributa/invoicegen/internal/invoice/domain"
	"github.com/samatributa/invoicegen/internal/lock"
	"github.com/samatributa/invoicegen/internal/observability/pusher"
	"go.uber.org/fx"
)

var Module = fx.Module("scheduler",
	fx.Provide(ProvideConfig),
	fx.Provide(lock.NewLocker),
	fx.Provide(pusher.NewPusher),
	fx.Provide(func(svc invoicedomain.Service) Purger { return svc }),
	fx.Provide(New),
	fx.Invoke(NewScheduler),
)

func NewScheduler(lc fx.Lifecycle, sched *Scheduler) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go sched.RunForever(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
