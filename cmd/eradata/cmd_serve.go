package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"eradata/internal/handlers"
	"eradata/internal/storage"
)

func newServeCmd(st *cliState) *cobra.Command {
	var (
		port  int
		store string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve published aggregate results over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := st.cfg
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if cmd.Flags().Changed("store") {
				cfg.Storage.DataDir = store
			}
			if cfg.Storage.DataDir == "" {
				return errors.New("serve needs a store: set --store, DATA_DIR or storage.data_dir")
			}

			pbStore, err := storage.NewPocketBaseStore(cfg.Storage.DataDir, st.logger)
			if err != nil {
				return err
			}
			defer pbStore.Close()

			mux := http.NewServeMux()
			handlers.NewCountyHandler(pbStore, st.logger).Routes(mux)

			addr := ":" + strconv.Itoa(cfg.Server.Port)
			return serve(cmd.Context(), &http.Server{Addr: addr, Handler: mux}, st.logger)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "Listen port (default: 8080 or PORT)")
	cmd.Flags().StringVar(&store, "store", "", "PocketBase data directory holding published results")
	return cmd
}

// serve runs srv until ctx is cancelled, then shuts it down gracefully
func serve(ctx context.Context, srv *http.Server, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	<-errCh
	return nil
}
