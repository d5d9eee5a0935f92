// Command railmock serves an in-memory railway backend seeded with demo
// data, for trying railctl without the real service.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"railctl/internal/config"
	"railctl/internal/fakeapi"
	"railctl/internal/log"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "railmock",
		Short:        "In-memory railway backend for trying railctl",
		SilenceUsage: true,
	}
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var (
		cfgFile string
		addr    string
		debug   bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the seeded backend until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				cfg *config.Config
				err error
			)
			if cfgFile != "" {
				cfg, err = config.LoadConfigFile(cfgFile)
			} else {
				cfg, err = config.LoadConfig()
			}
			if err != nil {
				log.LogWithError(err).Warn("using default settings")
				cfg = config.New()
			}
			if addr == "" {
				addr = cfg.Mock.Addr
			}
			log.SetDebug(debug || cfg.Log.Debug)
			if !debug {
				gin.SetMode(gin.ReleaseMode)
			}

			store := fakeapi.NewStore()
			if err := fakeapi.Seed(store); err != nil {
				return err
			}
			log.LogWithFields(
				log.F("admin", fakeapi.AdminEmail),
				log.F("user", fakeapi.UserEmail),
			).Info("demo accounts ready")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return fakeapi.New(store, fakeapi.OptionsFromConfig(cfg)).Run(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/railctl/config.yaml)")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides mock.addr)")
	cmd.Flags().BoolVar(&debug, "debug", false, "log every request")
	return cmd
}
