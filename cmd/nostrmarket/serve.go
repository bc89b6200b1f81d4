package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	jww "github.com/spf13/jwalterweatherman"
	"github.com/spf13/viper"

	"github.com/synvya/nostrmarket/pkg/chat"
	"github.com/synvya/nostrmarket/pkg/httpapi"
	"github.com/synvya/nostrmarket/pkg/ingest"
	"github.com/synvya/nostrmarket/pkg/llm"
	_ "github.com/synvya/nostrmarket/pkg/llm/gemini"
	_ "github.com/synvya/nostrmarket/pkg/llm/openai"
	"github.com/synvya/nostrmarket/pkg/market"
	"github.com/synvya/nostrmarket/pkg/mcpserver"
	"github.com/synvya/nostrmarket/pkg/otel"
	"github.com/synvya/nostrmarket/pkg/store/sqlstore"
	"github.com/synvya/nostrmarket/pkg/tools"
)

const chatContextTokens = 12000

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the REST API, the MCP endpoint and the periodic relay refresh",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		shutdownOtel, err := otel.Init(ctx, version, viper.GetBool("otel_stdout"))
		if err != nil {
			return err
		}
		defer func() { _ = shutdownOtel(context.Background()) }()

		st, err := sqlstore.Open(ctx, viper.GetString("database_url"))
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		source := ingest.NewRelaySource(viper.GetStringSlice("relays"))
		interval := viper.GetDuration("refresh_interval")
		refresher := ingest.NewRefresher(source, st, interval)

		reg := tools.NewRegistry()
		tools.RegisterMarketTools(reg, tools.MarketDeps{
			Store:     st,
			Search:    market.NewSearch(st),
			Resolver:  market.NewResolver(st),
			Refresher: refresher,
		})

		var chatSvc *chat.Service
		provider := viper.GetString("llm_provider")
		if provider != "" {
			factory, ok := llm.Resolve(provider)
			if !ok {
				jww.ERROR.Printf("unknown llm provider %q; known: %v", provider, llm.Providers())
			} else {
				model, err := factory(ctx, map[string]any{"model": viper.GetString("llm_model")})
				if err != nil {
					jww.ERROR.Printf("llm provider %q unavailable, chat disabled: %v", provider, err)
				} else {
					budget := chat.NewBudget(viper.GetString("llm_model"), chatContextTokens)
					chatSvc = chat.NewService(model, reg, budget)
					jww.INFO.Printf("chat enabled via %s", model.Name())
				}
			}
		}

		mcpSrv, err := mcpserver.New(mcpserver.Config{
			Version:  version,
			Registry: reg,
			Resolver: market.NewResolver(st),
			Allowed:  map[string]bool{tools.PermAdmin: true},
		})
		if err != nil {
			return err
		}

		handler := httpapi.New(httpapi.Config{
			Registry:    reg,
			Chat:        chatSvc,
			Version:     version,
			BearerToken: viper.GetString("bearer_token"),
			MCP:         mcpserver.HTTPHandler(mcpSrv),
		})

		go refresher.Run(ctx)

		srv := &http.Server{
			Addr:              viper.GetString("addr"),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		jww.INFO.Printf("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	f := serveCmd.Flags()
	f.String("addr", ":8080", "HTTP listen address")
	f.Duration("refresh-interval", ingest.DefaultInterval, "Cadence of the background relay refresh")
	f.String("bearer-token", "", "Static bearer token guarding /api routes; empty disables auth")
	f.String("llm-provider", "openai", "Chat provider: openai or gemini; empty disables /api/chat")
	f.String("llm-model", "", "Override the provider's default model")
	f.Bool("otel-stdout", false, "Export traces to stdout")
	_ = viper.BindPFlag("addr", f.Lookup("addr"))
	_ = viper.BindPFlag("refresh_interval", f.Lookup("refresh-interval"))
	_ = viper.BindPFlag("bearer_token", f.Lookup("bearer-token"))
	_ = viper.BindPFlag("llm_provider", f.Lookup("llm-provider"))
	_ = viper.BindPFlag("llm_model", f.Lookup("llm-model"))
	_ = viper.BindPFlag("otel_stdout", f.Lookup("otel-stdout"))

	rootCmd.AddCommand(serveCmd)
}
