// Package cli implements the mssqlds operator commands: exec runs a stored
// procedure through the data source, schema prints a procedure's introspected
// parameter list.
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
		Use:   "mssqlds",
		Short: "Run SQL Server stored procedures through the data-source pipeline",
		Long: `mssqlds exercises the mssql-data-source library against a live SQL Server:
introspect a stored procedure's parameter schema, or execute it with JSON
parameters on the query or mutation endpoint and print the result envelope.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./mssqlds.yaml)")

	cobra.OnInitialize(initConfig)

	cmd.AddCommand(newExecCmd())
	cmd.AddCommand(newSchemaCmd())
	cmd.AddCommand(newVersionCmd(version, commit, date))

	return cmd
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("mssqlds")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.mssqlds")
	}

	viper.SetEnvPrefix("MSSQLDS")
	viper.AutomaticEnv()
	viper.ReadInConfig() // Ignore error - config file is optional
}
