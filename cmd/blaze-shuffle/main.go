package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	clientcmd "github.com/zzcclp/blaze/internal/cmd/client"
	serverrun "github.com/zzcclp/blaze/internal/cmd/server"
	cfgpkg "github.com/zzcclp/blaze/internal/config"
	logpkg "github.com/zzcclp/blaze/pkg/log"
)

func main() {
	level, err := logpkg.ParseLevel(os.Getenv("BLAZE_LOG_LEVEL"))
	if err != nil {
		level = logpkg.InfoLevel
	}
	logger := logpkg.NewLogger(logpkg.WithLevel(level))

	rootCmd := &cobra.Command{
		Use:   "blaze-shuffle",
		Short: "Blaze remote shuffle CLI",
		Long:  "blaze-shuffle runs shuffle storage workers and fetches partition ranges from them.",
	}

	serverCmd := &cobra.Command{Use: "server", Short: "Worker server commands"}
	serverStartCmd := &cobra.Command{
		Use:     "start",
		Short:   "Start a shuffle storage worker",
		Aliases: []string{"run"},
		RunE: func(cmd *cobra.Command, args []string) error {
			dataDir, _ := cmd.Flags().GetString("data-dir")
			httpAddr, _ := cmd.Flags().GetString("http")
			sync, _ := cmd.Flags().GetBool("sync")
			configPath, _ := cmd.Flags().GetString("config")

			cfg, err := cfgpkg.Load(configPath)
			if err != nil {
				return err
			}
			if dataDir == "" {
				dataDir = cfg.Worker.DataDir
			}
			if httpAddr == "" {
				httpAddr = cfg.Worker.HTTPAddr
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return serverrun.Run(ctx, serverrun.Options{
				DataDir:  dataDir,
				HTTPAddr: httpAddr,
				Sync:     sync,
				Logger:   logger,
			})
		},
	}
	serverStartCmd.Flags().String("data-dir", os.Getenv(cfgpkg.EnvWorkerDataDir), "Block store directory")
	serverStartCmd.Flags().String("http", "", "HTTP listen address (default from config, :7337)")
	serverStartCmd.Flags().Bool("sync", false, "Fsync block writes (shuffle data is recomputable; default off)")
	serverStartCmd.Flags().String("config", "", "Path to a JSON config file (optional)")
	serverCmd.AddCommand(serverStartCmd)
	rootCmd.AddCommand(serverCmd)

	rootCmd.AddCommand(clientcmd.NewFetchCommand(logger))
	rootCmd.AddCommand(clientcmd.NewBlocksCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
