package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
	jww "github.com/spf13/jwalterweatherman"
	"github.com/spf13/viper"
)

var version = "0.3.0"

var rootCmd = &cobra.Command{
	Use:   "nostrmarket",
	Short: "Bridge between Nostr marketplace data and LLM tooling",
	Long: "nostrmarket ingests Nostr profile and marketplace events (kinds 0, " +
		"30017, 30018) into an embedded store and serves them over REST, chat " +
		"and the Model Context Protocol.",
	PersistentPreRun: func(*cobra.Command, []string) {
		initLog(viper.GetString("log_level"))
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("database-url", "sqlite:file:nostrmarket.sqlite?cache=shared&_pragma=busy_timeout(5000)",
		"Store DSN: sqlite:<dsn> or postgres://...")
	pf.String("log-level", "info", "Log threshold: trace, debug, info, warn or error")
	pf.StringSlice("relays", nil, "Relay URLs to ingest from (default: the public relay set)")
	_ = viper.BindPFlag("database_url", pf.Lookup("database-url"))
	_ = viper.BindPFlag("log_level", pf.Lookup("log-level"))
	_ = viper.BindPFlag("relays", pf.Lookup("relays"))

	viper.SetEnvPrefix("NOSTRMARKET")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func initLog(level string) {
	jww.SetStdoutOutput(os.Stderr)
	switch strings.ToLower(level) {
	case "trace":
		jww.SetStdoutThreshold(jww.LevelTrace)
	case "debug":
		jww.SetStdoutThreshold(jww.LevelDebug)
	case "warn":
		jww.SetStdoutThreshold(jww.LevelWarn)
	case "error":
		jww.SetStdoutThreshold(jww.LevelError)
	default:
		jww.SetStdoutThreshold(jww.LevelInfo)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		jww.ERROR.Printf("%+v", err)
		os.Exit(1)
	}
}
