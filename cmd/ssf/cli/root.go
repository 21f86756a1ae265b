package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// Execute creates the root command tree and runs it.
func Execute(version, commit, date string) error {
	rootCmd := newRootCmd(version, commit, date)
	return rootCmd.Execute()
}

func newRootCmd(version, commit, date string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ssf",
		Short: "Dynamic CRUD execution engine over allow-listed tables",
		Long: `ssf synthesizes parameterized SQL at runtime from structural descriptions
of CRUD operations: a table name, column/value pairs, and filter conditions.
Every identifier is validated against the live database catalog, every value
is bound as a parameter, and every invocation leaves a durable audit record.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./ssf.yaml)")

	cobra.OnInitialize(initConfig)

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newVersionCmd(version, commit, date))
	cmd.AddCommand(newTablesCmd())
	cmd.AddCommand(newResolvePKCmd())
	cmd.AddCommand(newTokenCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newMCPCmd())

	return cmd
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("ssf")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.ssf")
	}

	viper.SetEnvPrefix("SSF")
	viper.AutomaticEnv()
	viper.ReadInConfig() // Ignore error - config file is optional
}
