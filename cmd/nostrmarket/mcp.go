package main

import (
	"github.com/spf13/cobra"
	jww "github.com/spf13/jwalterweatherman"
	"github.com/spf13/viper"

	"github.com/synvya/nostrmarket/pkg/ingest"
	"github.com/synvya/nostrmarket/pkg/market"
	"github.com/synvya/nostrmarket/pkg/mcpserver"
	"github.com/synvya/nostrmarket/pkg/store/sqlstore"
	"github.com/synvya/nostrmarket/pkg/tools"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the Model Context Protocol on stdio",
	Long: "Runs an MCP server on stdin/stdout for local clients such as " +
		"editor assistants. The background relay refresh stays off; use the " +
		"refresh_database tool to pull on demand.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := sqlstore.Open(ctx, viper.GetString("database_url"))
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		source := ingest.NewRelaySource(viper.GetStringSlice("relays"))
		refresher := ingest.NewRefresher(source, st, 0)

		reg := tools.NewRegistry()
		tools.RegisterMarketTools(reg, tools.MarketDeps{
			Store:     st,
			Search:    market.NewSearch(st),
			Resolver:  market.NewResolver(st),
			Refresher: refresher,
		})

		server, err := mcpserver.New(mcpserver.Config{
			Version:  version,
			Registry: reg,
			Resolver: market.NewResolver(st),
			Allowed:  map[string]bool{tools.PermAdmin: true},
		})
		if err != nil {
			return err
		}
		jww.INFO.Printf("mcp server on stdio")
		return mcpserver.RunStdio(ctx, server)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
