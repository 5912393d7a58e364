package main

import (
	"github.com/spf13/cobra"

	"github.com/marioser/dolibarr-mcp/config"
)

const serviceName = "dolibarr-mcp"

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type rootOptions struct {
	configFile string
	envFile    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   serviceName,
		Short: "MCP server for the Dolibarr ERP REST API",
		Long: `dolibarr-mcp exposes Dolibarr customers, products, invoices, orders,
proposals, projects, contacts and users as MCP tools, with a shared read
cache invalidated by every mutation.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (default: ./config.yaml if present)")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "dotenv file (default: ./.env if present)")

	cmd.AddCommand(
		newServeCmd(opts),
		newTestConnectionCmd(opts),
		newToolsCmd(),
		newVersionCmd(),
	)
	return cmd
}

func (o *rootOptions) load(cmd *cobra.Command) (*config.Config, error) {
	return config.Load(cmd.Context(), config.Options{
		ConfigFile: o.configFile,
		EnvFile:    o.envFile,
	})
}
