package health

import "go.uber.org/fx"

func NewReadinessModule() fx.Option {
	return fx.Provide(
		NewReadiness,
		func(r *Readiness) ComponentManager { return r },
		func(r *Readiness) ReadinessWaiter { return r },
	)
}
