package cli

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	inframcp "github.com/kevinbrodzinski/comesocial-sub003/internal/infrastructure/mcp"
	"github.com/kevinbrodzinski/comesocial-sub003/internal/infrastructure/wiring"
	"github.com/spf13/cobra"
)

var (
	mcpTransport string
	mcpAddr      string
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the Comesocial MCP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		app, err := wiring.BuildApp(cfg, nil)
		if err != nil {
			return MapError(fmt.Errorf("failed to build app: %w", err))
		}
		defer func() { _ = app.Close() }()

		server := inframcp.NewServer(app.Engine, app.Logger)
		if os.Getenv("COMESOCIAL_SKIP_MCP_START") == "true" {
			return nil
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		go app.Run(ctx)

		if err := server.Serve(ctx, strings.ToLower(mcpTransport), mcpAddr); err != nil {
			return fmt.Errorf("mcp server: %w", err)
		}
		return nil
	},
}

func init() {
	mcpCmd.Flags().StringVar(&mcpTransport, "transport", "stdio", "Transport to use (stdio, http, ws)")
	mcpCmd.Flags().StringVar(&mcpAddr, "addr", ":8081", "Address for http/ws transports")
	RootCmd.AddCommand(mcpCmd)
}
