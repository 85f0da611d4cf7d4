package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MeKo-Tech/lochistory/assets"
	"github.com/MeKo-Tech/lochistory/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the browser front-end and proxy /api to the location-history API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "127.0.0.1:8080", "Listen address (host:port)")
	serveCmd.Flags().String("web-dir", "", "Directory overlaying the embedded shell (wasm build output, wasm_exec.js)")
	serveCmd.Flags().String("cache-control", "no-store", "Cache-Control header for static files")
	serveCmd.Flags().Duration("proxy-timeout", 30*time.Second, "Timeout per proxied API request")

	mustBind := func(key string, name string) {
		if err := viper.BindPFlag(key, serveCmd.Flags().Lookup(name)); err != nil {
			panic(fmt.Sprintf("failed to bind flag: %v", err))
		}
	}

	mustBind("serve.addr", "addr")
	mustBind("serve.web_dir", "web-dir")
	mustBind("serve.cache_control", "cache-control")
	mustBind("serve.proxy_timeout", "proxy-timeout")
}

func runServe(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	addr := viper.GetString("serve.addr")
	webDir := viper.GetString("serve.web_dir")
	apiURL := viper.GetString("api.url")

	s, err := server.New(server.Config{
		APIURL:       apiURL,
		Shell:        assets.Web(),
		WebDir:       webDir,
		CacheControl: viper.GetString("serve.cache_control"),
		ProxyTimeout: viper.GetDuration("serve.proxy_timeout"),
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	logger.Info("server listening",
		"addr", addr,
		"api_url", apiURL,
		"web_dir", webDir,
	)

	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
