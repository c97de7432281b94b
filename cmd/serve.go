package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"agentdash/internal/relay"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the relay server",
	Long: `Start the stateless HTTP relay the dashboard talks to.

The relay forwards /relay requests to the agent service with the
caller's bearer token attached, and exchanges GitHub OAuth codes on
/exchange-token. It holds no per-session state.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveRun(cmd)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("listen", "localhost:8787", "address to listen on")
	_ = viper.BindPFlag("relay.listen_addr", serveCmd.Flags().Lookup("listen"))
}

func serveRun(cmd *cobra.Command) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	srv := relay.NewServer(relay.Config{
		AgentBaseURL:      viper.GetString("relay.agent_base_url"),
		OAuthTokenURL:     viper.GetString("github.oauth_token_url"),
		OAuthClientID:     viper.GetString("github.oauth_client_id"),
		OAuthClientSecret: viper.GetString("github.oauth_client_secret"),
	}, logger)

	addr := viper.GetString("relay.listen_addr")
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("relay listening", "addr", addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	}
}
