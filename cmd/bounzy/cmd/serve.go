package cmd

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/bounzy/bounzy-go/engine/lifecycle"
	"github.com/bounzy/bounzy-go/engine/rest"
	"github.com/bounzy/bounzy-go/module"
	"github.com/bounzy/bounzy-go/module/component"
	"github.com/bounzy/bounzy-go/module/irrecoverable"
	"github.com/bounzy/bounzy-go/module/metrics"
	"github.com/bounzy/bounzy-go/module/util"
)

func init() {
	rootCmd.AddCommand(serveCmd)
	evidenceCmd.AddCommand(evidenceWatchCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "serve the REST API and push phase changes of watched evidence over websockets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		lifecycleCollector := metrics.NewLifecycleCollector(registry)

		s, err := initServices(cmd.Context(), serviceMetrics{
			lifecycle: lifecycleCollector,
			relayer:   metrics.NewRelayerCollector(registry),
		})
		if err != nil {
			return err
		}
		defer s.Close()

		// a relayer that is down is reported but does not stop the reads
		if err := s.adapter.Init(cmd.Context()); err != nil {
			log.Warn().Err(err).Msg("relayer initialization failed, only reads are served")
		}

		watcher := lifecycle.NewWatcher(log, conf.Lifecycle, s.orchestrator, s.gateway, lifecycleCollector)
		hub := rest.NewHub(log, conf.Rest.Updates, conf.Rest.AllowedOrigins)
		watcher.AddConsumer(hub)

		server := rest.NewServer(log, conf.Rest, s.orchestrator, hub, metrics.NewRestCollector(registry))

		components := []component.Component{watcher, server}
		if conf.Metrics.Enabled {
			components = append(components, metrics.NewServer(log, conf.Metrics.Port, registry))
		}
		return runComponents(cmd.Context(), components...)
	},
}

var evidenceWatchCmd = &cobra.Command{
	Use:   "watch [evidence-id...]",
	Short: "print phase changes of the given evidence and of the evidence submitted by this account",
	RunE: func(cmd *cobra.Command, args []string) error {
		ids := make([]uint32, len(args))
		for i, arg := range args {
			ids[i] = mustParseID(arg)
		}
		s := mustInitServices(cmd.Context())
		defer s.Close()

		watcher := lifecycle.NewWatcher(log, conf.Lifecycle, s.orchestrator, s.gateway, metrics.NewNoopCollector())
		watcher.AddConsumer(printer{})
		for _, id := range ids {
			watcher.Track(id)
		}
		return runComponents(cmd.Context(), watcher)
	},
}

// printer writes every phase change to stdout.
type printer struct{}

func (printer) OnPhaseChange(change lifecycle.PhaseChange) {
	var update rest.PhaseUpdate
	update.Build(change)
	prettyPrint(update)
}

// runComponents starts the components and blocks until ctx is cancelled or one
// of them throws. Either way every component is shut down before returning.
func runComponents(ctx context.Context, components ...component.Component) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	signalerCtx, errChan := irrecoverable.WithSignaler(ctx)
	aware := make([]module.ReadyDoneAware, len(components))
	for i, c := range components {
		c.Start(signalerCtx)
		aware[i] = c
	}

	select {
	case <-util.AllReady(aware...):
		log.Info().Msg("started, press Ctrl-C to stop")
	case err := <-errChan:
		cancel()
		<-util.AllDone(aware...)
		return fmt.Errorf("startup failed: %w", err)
	}

	err := util.WaitError(errChan, util.AllDone(aware...))
	if err != nil {
		cancel()
		<-util.AllDone(aware...)
		return fmt.Errorf("component failed: %w", err)
	}
	log.Info().Msg("stopped")
	return nil
}
