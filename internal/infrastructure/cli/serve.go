package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/kevinbrodzinski/comesocial-sub003/internal/infrastructure/httpapi"
	"github.com/kevinbrodzinski/comesocial-sub003/internal/infrastructure/sse"
	"github.com/kevinbrodzinski/comesocial-sub003/internal/infrastructure/wiring"
	"github.com/kevinbrodzinski/comesocial-sub003/internal/infrastructure/ws"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the plan engine over HTTP, WebSocket and SSE",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if serveAddr != "" {
			cfg.Addr = serveAddr
		}

		app, err := wiring.BuildApp(cfg, nil)
		if err != nil {
			return MapError(fmt.Errorf("failed to build app: %w", err))
		}
		defer func() { _ = app.Close() }()

		if os.Getenv("COMESOCIAL_SKIP_SERVE") == "true" {
			return nil
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runServer(ctx, app, newAPIServer(app))
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides the config file)")
	RootCmd.AddCommand(serveCmd)
}

// newAPIServer mounts the websocket hub and SSE stream next to the REST
// routes.
func newAPIServer(app *wiring.App) *httpapi.Server {
	hub := ws.NewHub(app.Dispatcher, app.Engine.Presence, app.Logger)
	stream := sse.NewSSEHandler(app.Dispatcher, app.Logger)
	return httpapi.NewServer(app.Engine,
		httpapi.WithLogger(app.Logger),
		httpapi.WithHandler("GET /ws", hub),
		httpapi.WithHandler("GET /events", stream),
	)
}

func runServer(ctx context.Context, app *wiring.App, srv *httpapi.Server) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		app.Run(ctx)
	}()

	app.Logger.Info("plan engine starting", "store", app.Config.Storage.Driver, "event_log", app.Config.EventLog)
	err := srv.ListenAndServe(ctx, app.Config.Addr)
	cancel()
	wg.Wait()
	return err
}
