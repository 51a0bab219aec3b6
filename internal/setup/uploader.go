package setup

import (
	"fmt"
	"net/http"

	"github.com/The127/ioc"

	"github.com/bmakarand2009/studiomedia/internal/backoff"
	"github.com/bmakarand2009/studiomedia/internal/config"
	"github.com/bmakarand2009/studiomedia/internal/journal"
	"github.com/bmakarand2009/studiomedia/internal/registrar"
	"github.com/bmakarand2009/studiomedia/internal/services/backendapi"
	"github.com/bmakarand2009/studiomedia/internal/services/cdnconfig"
	"github.com/bmakarand2009/studiomedia/internal/services/clock"
	"github.com/bmakarand2009/studiomedia/internal/services/kv"
	"github.com/bmakarand2009/studiomedia/internal/sessions"
	"github.com/bmakarand2009/studiomedia/internal/transport"
	"github.com/bmakarand2009/studiomedia/internal/uploader"
)

// Uploader wires the whole transfer pipeline: backend client, cdn
// settings, both transports, the registrar and the orchestrator itself.
// The broadcaster is a singleton because it is the process-wide view of
// all upload sessions.
func Uploader(dc *ioc.DependencyCollection, cfg config.Config) {
	ioc.RegisterSingleton(dc, func(_ *ioc.DependencyProvider) *sessions.Broadcaster {
		return sessions.NewBroadcaster()
	})

	ioc.RegisterSingleton(dc, func(dp *ioc.DependencyProvider) backendapi.Client {
		client, err := backendapi.NewClient(cfg.Backend, ioc.GetDependency[clock.Service](dp))
		if err != nil {
			panic(fmt.Errorf("failed to create backend client: %w", err))
		}
		return client
	})

	ioc.RegisterSingleton(dc, func(_ *ioc.DependencyProvider) cdnconfig.Provider {
		return cdnconfig.NewProvider(cfg.Cdn)
	})

	ioc.RegisterSingleton(dc, func(dp *ioc.DependencyProvider) registrar.Service {
		return registrar.NewService(ioc.GetDependency[backendapi.Client](dp))
	})

	ioc.RegisterSingleton(dc, func(dp *ioc.DependencyProvider) *transport.Resumable {
		return transport.NewResumable(
			&http.Client{},
			ioc.GetDependency[kv.Store](dp),
			backoff.NewFixedSchedule(cfg.Transfer.RetryDelays),
			ioc.GetDependency[clock.Service](dp),
			cfg.Transfer.ChunkSize,
		)
	})

	ioc.RegisterSingleton(dc, func(_ *ioc.DependencyProvider) *transport.Direct {
		return transport.NewDirect(&http.Client{})
	})

	ioc.RegisterSingleton(dc, func(dp *ioc.DependencyProvider) uploader.Service {
		return uploader.NewService(
			ioc.GetDependency[*sessions.Broadcaster](dp),
			ioc.GetDependency[backendapi.Client](dp),
			ioc.GetDependency[registrar.Service](dp),
			ioc.GetDependency[*transport.Resumable](dp),
			ioc.GetDependency[*transport.Direct](dp),
			ioc.GetDependency[cdnconfig.Provider](dp),
			ioc.GetDependency[journal.Store](dp),
			ioc.GetDependency[clock.Service](dp),
			cfg.Transfer.MaxConcurrent,
		)
	})
}
