// Package cli defines the loci command tree.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"loci/internal/app"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "loci",
	Short: "Terminal client for the loci chat service",
	Long: `loci is a terminal client for the loci chat service.

Log in once, then open rooms and private chats; the access token is kept in
the system keyring. Configuration comes from flags, LOCI_* environment
variables, and ~/.loci.yaml, in that order.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the command tree. Called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.loci.yaml)")
	rootCmd.PersistentFlags().String("api", "", "base URL of the REST API")
	rootCmd.PersistentFlags().String("socket", "", "URL of the realtime websocket")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "log format (json, pretty)")
	rootCmd.PersistentFlags().String("metrics-addr", "", "debug prometheus listener address (empty disables)")

	_ = viper.BindPFlag(app.KeyAPIBaseURL, rootCmd.PersistentFlags().Lookup("api"))
	_ = viper.BindPFlag(app.KeySocketURL, rootCmd.PersistentFlags().Lookup("socket"))
	_ = viper.BindPFlag(app.KeyLogLevel, rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag(app.KeyLogFormat, rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag(app.KeyMetricsAddr, rootCmd.PersistentFlags().Lookup("metrics-addr"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".loci")
	}

	viper.SetEnvPrefix("LOCI")
	viper.AutomaticEnv()
	app.SetDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Fprintln(os.Stderr, "Error reading config file:", err)
		}
	}
}
