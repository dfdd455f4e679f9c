package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/linesmerrill/custody-ledger-api/api/handlers"
	"github.com/linesmerrill/custody-ledger-api/config"
)

const shutdownTimeout = 15 * time.Second

func serveCommand(conf *config.Config) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				conf.Port = port
			}
			return serve(cmd.Context(), conf)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "port to listen on, overrides PORT")
	return cmd
}

func serve(parent context.Context, conf *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := handlers.App{Config: *conf}
	if err := a.Initialize(ctx); err != nil { //initialize database and router
		_ = a.Close(context.Background())
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%v", conf.Port),
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.S().Infow("custody-ledger-api is up and running",
			"port", conf.Port,
			"url", conf.BaseURL,
			"driver", conf.DBDriver,
			"authEnabled", conf.AuthEnabled,
		)
		errCh <- srv.ListenAndServe()
	}()

	var serveErr error
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
		}
	case <-ctx.Done():
		zap.S().Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.S().Warnw("http shutdown incomplete", "error", err)
	}
	return errors.Join(serveErr, a.Close(shutdownCtx))
}
