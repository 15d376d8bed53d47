package cli

import (
	"fmt"

	inframcp "github.com/kevinbrodzinski/comesocial-sub003/internal/infrastructure/mcp"
	"github.com/kevinbrodzinski/comesocial-sub003/internal/infrastructure/wiring"
	"github.com/spf13/cobra"
)

var openapiCmd = &cobra.Command{
	Use:   "openapi",
	Short: "Print an OpenAPI 3.0 document for the MCP tools",
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

		data, err := inframcp.NewServer(app.Engine, app.Logger).OpenAPI()
		if err != nil {
			return MapError(fmt.Errorf("failed to generate OpenAPI document: %w", err))
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

func init() {
	mcpCmd.AddCommand(openapiCmd)
}
