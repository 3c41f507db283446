package webhook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/onchain-coinflip/coinflip/configs"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const shutdownTimeout = 5 * time.Second

var CMD = &cobra.Command{
	Use:   "webhook",
	Short: "Serve the mini-app webhook endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		address := configs.Values.Webhook.ListenAddress
		if address == "" {
			return errors.New("webhook.listen-address is required")
		}

		if err := serve(cmd.Context(), address); err != nil {
			return fmt.Errorf("error occurred serving webhook: %w", err)
		}
		return nil
	},
}

func init() {
	CMD.Flags().String("listen-address", ":3000", "Address the webhook server listens on")
	if err := viper.BindPFlag("webhook.listen-address", CMD.Flags().Lookup("listen-address")); err != nil {
		panic(err)
	}
}

func serve(ctx context.Context, address string) error {
	gin.SetMode(gin.ReleaseMode)

	server := &http.Server{
		Addr:              address,
		Handler:           NewRouter(NewHandler()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.With("address", address).With("path", Path).Info("webhook server listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	slog.Info("shutting down webhook server")
	return server.Shutdown(shutdownCtx)
}
