package agent

import (
	"context"
	"errors"
	"sync"

	"ai-trader/internal/logger"
)

// RunAll runs every enabled signature concurrently. Signatures are fully
// independent flows; one aborting does not stop the others, but every
// failure is reported.
func RunAll(ctx context.Context, registry *Registry, deps Deps) error {
	factory, err := registry.Resolve(deps.Cfg.AgentType)
	if err != nil {
		return err
	}

	models := deps.Cfg.EnabledModels()
	if len(models) == 0 {
		return errors.New("agent: no enabled models in config")
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, mc := range models {
		runner := factory(deps, mc)
		wg.Add(1)
		go func(signature string) {
			defer wg.Done()
			if err := runner.Run(ctx); err != nil {
				logger.ErrorWithErr(ctx, "Signature run aborted", err, "signature", signature)
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(mc.Signature)
	}
	wg.Wait()
	return errors.Join(errs...)
}
