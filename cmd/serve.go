package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/sardine-ai/dmx-artnet-checker/artnet"
	"github.com/sardine-ai/dmx-artnet-checker/logging"
	"github.com/sardine-ai/dmx-artnet-checker/server"
	"github.com/sardine-ai/dmx-artnet-checker/settings"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long:  "Serve the configuration and Art-Net API until interrupted",
	RunE:  runServe,
}

func init() {
	flags := serveCmd.Flags()
	flags.String("addr", ":3001", "listen address")
	flags.Bool("watch", false, "reload when configuration files change on disk")
	flags.String("static", "", "directory served at /")
	flags.String("auth-key", "", "require this X-API-KEY on API requests")
	for _, name := range []string{"addr", "watch", "static", "auth-key"} {
		cobra.CheckErr(viper.BindPFlag(name, flags.Lookup(name)))
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	registry := store.Registry()
	registry.Load()
	cfg := store.Config()

	closer, err := logging.Configure(logrus.StandardLogger(), cfg.Logging, registry.Root())
	if err != nil {
		logrus.WithError(err).Warn("error configuring logging")
	}
	defer closer.Close()
	if err := applyLogLevel(cmd, args); err != nil {
		return err
	}

	controller := artnet.NewController(artnet.DialUDP, cfg.Network)
	defer func() {
		if err := controller.Close(); err != nil {
			logrus.WithError(err).Error("error closing art-net session")
		}
	}()

	srv := server.NewServer(store, controller)
	srv.AuthKey = viper.GetString("auth-key")
	srv.StaticDir = viper.GetString("static")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if viper.GetBool("watch") {
		watcher, err := settings.NewWatcher(ctx, store, 0)
		if err != nil {
			return err
		}
		defer watcher.Stop()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(viper.GetString("addr"))
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logrus.Info("shutting down")
		srv.Stop()
		return <-errCh
	}
}
