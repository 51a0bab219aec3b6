package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/The127/ioc"
	"github.com/avast/retry-go"

	"github.com/bmakarand2009/studiomedia/internal/args"
	"github.com/bmakarand2009/studiomedia/internal/config"
	"github.com/bmakarand2009/studiomedia/internal/logging"
	"github.com/bmakarand2009/studiomedia/internal/server"
	"github.com/bmakarand2009/studiomedia/internal/services/clock"
	"github.com/bmakarand2009/studiomedia/internal/setup"
)

func main() {
	args.Init()
	logging.Init()
	config.Init()

	dc := ioc.NewDependencyCollection()

	ioc.RegisterSingleton(dc, func(_ *ioc.DependencyProvider) clock.Service {
		return clock.NewClockService()
	})

	journalStore := setup.Journal(dc, config.C.Journal)

	err := retry.Do(
		func() error {
			return journalStore.Migrate()
		},
		retry.Attempts(5),
		retry.Delay(time.Second*5),
		retry.DelayType(retry.FixedDelay),
		retry.OnRetry(func(n uint, err error) {
			logging.Logger.Warnf("failed to migrate journal: %s, retrying in 5 seconds", err)
		}),
	)
	if err != nil {
		logging.Logger.Panicf("failed to migrate journal: %s", err)
	}

	setup.Kv(dc, config.C.Kv)
	setup.Uploader(dc, config.C)
	setup.Mediator(dc)

	dp := dc.BuildProvider()

	server.Serve(dp, config.C.Server)
	waitForExit()
}

func waitForExit() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
}
