// Package cmd provides the command-line interface for Tessera.
//
// Configuration System:
//
//	Configuration is read with clear precedence:
//	1. Command-line flags (--config, --port, etc.) - highest priority
//	2. TESSERA_CONFIG_FILE environment variable - custom config file path
//	3. Individual environment variables (TESSERA_SERVER_PORT, etc.)
//	4. Configuration files (.tessera.yml) - lowest priority
//
// Environment Variables:
//
//	TESSERA_CONFIG_FILE: Path to custom configuration file
//	TESSERA_STORE_ROOT: Override the component definition root
//	TESSERA_SERVER_PORT: Override server port
//	TESSERA_RESOLVER_DEFAULT_MODE: Mode used when none is requested
//	And more following the TESSERA_<SECTION>_<OPTION> pattern
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/tessera/internal/config"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tessera",
	Short: "Resolve component configuration and build content models",
	Long: `Tessera resolves component configuration through super-type hierarchies
and builds scoped content models with a prioritized processor pipeline.

Quick Start:
  tessera resolve site/components/teaser        Show the distilled configuration
  tessera render site/components/teaser --json  Print the content model
  tessera serve                                 Serve models with live invalidation
  tessera version                               Show version information`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .tessera.yml, can also use TESSERA_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("root", "", "component definition root (overrides store.root)")
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("store.root", rootCmd.PersistentFlags().Lookup("root"))
}

// initConfig selects the configuration file and binds TESSERA_ variables.
//
// The file comes from --config, then TESSERA_CONFIG_FILE, then .tessera.yml
// in the working directory. A missing file is not an error.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("TESSERA_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".tessera")
	}

	viper.SetEnvPrefix("TESSERA")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	config.BindEnv(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
