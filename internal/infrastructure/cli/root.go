package cli

import (
	"fmt"
	"os"

	"github.com/kevinbrodzinski/comesocial-sub003/internal/infrastructure/config"
	inframcp "github.com/kevinbrodzinski/comesocial-sub003/internal/infrastructure/mcp"
	"github.com/spf13/cobra"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var configPath string

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:     "comesocial",
	Version: Version,
	Short:   "Collaborative plan engine for group nights out",
	Long: `Comesocial runs the plan engine behind a group night out.
Friends edit a shared draft of stops together, convert it into a live plan,
then follow progress and each other's status through the evening.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() error {
	inframcp.Version = Version
	inframcp.BuildCommit = Commit
	inframcp.BuildDate = Date

	err := RootCmd.Execute()
	if err != nil {
		var cliErr *CLIError
		if asCLIError(err, &cliErr) && cliErr.Hint != "" {
			fmt.Fprintf(os.Stderr, "Hint: %s\n", cliErr.Hint)
		}
	}
	return err
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultFile, "Path to the server config file")
}

// loadConfig reads the config named by --config.
func loadConfig() (*config.ServerConfig, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, NewCLIError("invalid configuration", fmt.Sprintf("Check %s or run 'comesocial config init'", configPath), err)
	}
	return cfg, nil
}
