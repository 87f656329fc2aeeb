package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/mergeq/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve run history and decision endpoints over HTTP",
	Long: `Start an HTTP server exposing recorded runs, per-PR history and the
readiness, classification and consensus decisions as a JSON API.
By default it listens on port 8080. Use --port to change it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveRun(cmd)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 8080, "port to listen on")
	viper.SetDefault("port", 8080)
	_ = viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))
}

func serveAddr() string {
	return fmt.Sprintf(":%d", viper.GetInt("port"))
}

func serveRun(cmd *cobra.Command) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext(cmd)
	defer cancel()

	srv := &http.Server{
		Addr:              serveAddr(),
		Handler:           api.NewServer(s, logger).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	ui.Info("Serving API at http://localhost%s/api/v1", srv.Addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	ui.Success("Server stopped")
	return nil
}
