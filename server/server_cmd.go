package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/acrine/authstack"
	"github.com/acrine/authstack/config"
)

func NewServerCmd(log *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server [flags]",
		Short: "Serve authorization decisions over HTTP",
	}

	var (
		port       int
		policyFile string
		watch      bool
	)

	flags := cmd.Flags()
	flags.IntVar(&port, "port", 4000, "port the server is listening on")
	flags.StringVar(&policyFile, "policy-file", "", "YAML policy file to load domains from")
	flags.BoolVar(&watch, "watch", false, "reload the policy file on change")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		policies := authstack.NewPolicyRegistry()
		if policyFile != "" && !watch {
			if err := config.Apply(policyFile, policies); err != nil {
				return err
			}
			log.Info("policy file loaded", slog.String("path", policyFile))
		}
		if watch {
			if policyFile == "" {
				return errors.New("--watch requires --policy-file")
			}
			watcher, err := config.NewWatcher(policyFile, policies, log.WithGroup("watcher"))
			if err != nil {
				return err
			}
			go func() {
				if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.Error("policy watcher stopped", slog.Any("error", err))
				}
			}()
		}

		promRegistry := prometheus.NewRegistry()
		metrics := authstack.NewMetrics(promRegistry)
		handler := NewHandler(log.WithGroup("handler"), policies, authstack.DefaultRegistry, metrics)

		server := http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: h2c.NewHandler(handler.Router(promRegistry), &http2.Server{}),
			BaseContext: func(l net.Listener) context.Context {
				return ctx
			},
		}

		log.Info(fmt.Sprintf("started server on 0.0.0.0:%d, http://localhost:%d", port, port))
		go func() {
			err := server.ListenAndServe()
			if errors.Is(err, http.ErrServerClosed) {
				log.Info("server gracefully closed")
			} else if err != nil {
				log.Error("error listening on server", slog.Any("error", err))
			}
		}()

		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctxShutdown); err != nil {
			log.Error("error on server shutdown", slog.Any("error", err))
			return err
		}
		return nil
	}

	return cmd
}
