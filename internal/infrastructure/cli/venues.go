package cli

import (
	"fmt"
	"strings"

	"github.com/kevinbrodzinski/comesocial-sub003/internal/infrastructure/wiring"
	"github.com/kevinbrodzinski/comesocial-sub003/pkg/plugin/contract"
	"github.com/spf13/cobra"
)

var venuesCmd = &cobra.Command{
	Use:   "venues",
	Short: "Inspect the configured venue lookup",
}

var venuesResolveCmd = &cobra.Command{
	Use:   "resolve <query>",
	Short: "Resolve a venue search the way AddStopFromSearch would",
	Args:  cobra.MinimumNArgs(1),
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

		if app.Venues == nil {
			return NewCLIError("no venue lookup configured", "Set venues.catalog or venues.plugin in the config file", nil)
		}
		v, err := app.Venues.ResolveVenue(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return MapError(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", v.ID, v.Name, v.Address)
		return nil
	},
}

var (
	pluginCatalog string
	pluginQuery   string
)

var pluginCmd = &cobra.Command{
	Use:   "plugin",
	Short: "Work with venue provider plugins",
}

var pluginValidateCmd = &cobra.Command{
	Use:   "validate <binary-path>",
	Short: "Run the venue provider contract suite against a plugin binary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		suite := contract.NewContractSuite(contract.Probe{
			Config:     map[string]string{"catalog": pluginCatalog},
			KnownQuery: pluginQuery,
		})
		result, err := suite.RunBinary(args[0])
		if err != nil {
			return NewCLIError("plugin could not be loaded", "Check the binary path and that it serves the venues plugin", err)
		}

		out := cmd.OutOrStdout()
		for _, r := range result.Results {
			mark := "PASS"
			if !r.Passed {
				mark = "FAIL"
			}
			fmt.Fprintf(out, "%s  %-24s %s\n", mark, r.Name, r.Message)
		}
		fmt.Fprintf(out, "%d passed, %d failed\n", result.Passed, result.Failed)
		if result.Failed > 0 {
			return NewCLIError(fmt.Sprintf("%d contract checks failed", result.Failed), "", nil)
		}
		return nil
	},
}

func init() {
	venuesCmd.AddCommand(venuesResolveCmd)
	RootCmd.AddCommand(venuesCmd)

	pluginValidateCmd.Flags().StringVar(&pluginCatalog, "catalog", "", "Catalog path passed to the plugin's Init")
	pluginValidateCmd.Flags().StringVar(&pluginQuery, "query", "", "A query the plugin is known to resolve")
	_ = pluginValidateCmd.MarkFlagRequired("query")
	pluginCmd.AddCommand(pluginValidateCmd)
	RootCmd.AddCommand(pluginCmd)
}
