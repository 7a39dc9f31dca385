// file: cmd/jsonrpcd/root.go
package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dkoosis/jsonrpc2go/internal/config"
	"github.com/dkoosis/jsonrpc2go/internal/logging"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "jsonrpcd",
	Short: "A general-purpose JSON-RPC 2.0 server host",
	Long:  longRoot,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: none, defaults are used)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
}

// initConfig loads the YAML config file (internal/config, via the
// teacher's New()-with-defaults shape) and seeds viper's defaults from it,
// so an explicit flag or JSONRPCD_-prefixed environment variable still
// wins over a value the file sets (viper resolves precedence at Get time
// regardless of SetDefault/BindPFlag call order).
func initConfig() {
	var settings *config.Settings
	var err error
	if cfgFile != "" {
		settings, err = config.Load(cfgFile)
		if err != nil {
			logging.GetLogger("main").Warn("failed to load config file, using defaults", "path", cfgFile, "error", err)
			settings = config.New()
		}
	} else {
		settings = config.New()
	}

	viper.SetDefault("server.transport", string(settings.Server.Transport))
	viper.SetDefault("server.line_delimiter", settings.Server.LineDelimiter)
	viper.SetDefault("http.addr", settings.HTTP.Addr)
	viper.SetDefault("dispatch.naming", string(settings.Dispatch.Naming))
	viper.SetDefault("dispatch.ordered", settings.Dispatch.Ordered)
	viper.SetDefault("dispatch.cancellation_enabled", settings.Dispatch.CancellationEnabled)

	viper.SetEnvPrefix("jsonrpcd")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	level := logging.LevelInfo
	if viper.GetBool("debug") {
		level = logging.LevelDebug
	}
	logging.InitLogging(level, os.Stderr)
}

var longRoot = `
jsonrpcd hosts a JSON-RPC 2.0 server over stdio (line-delimited or
length-prefixed) or HTTP, dispatching to a small built-in set of demo
methods (ping, echo, sleep). It exists to exercise the jsonrpc2go
framework end-to-end; embed the internal/dispatch, internal/rpcclient, and
internal/httprpc packages directly to serve your own methods.
`
