// Command pinocchio bridges an MCP tool caller to an avatar renderer over
// a persistent WebSocket. MCP runs on stdio, so all logging goes to
// stderr.
package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/TheSmallBoat/pinocchio/avatar"
	"github.com/TheSmallBoat/pinocchio/config"
	"github.com/TheSmallBoat/pinocchio/linklib"
	"github.com/TheSmallBoat/pinocchio/tools"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		cfgPath string
		url     string
	)

	root := &cobra.Command{
		Use:          "pinocchio",
		Short:        "MCP bridge that drives an avatar renderer over a WebSocket",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cfgPath, url)
		},
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to a yaml config file")
	root.PersistentFlags().StringVar(&url, "url", "", "renderer websocket url (overrides config)")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Serve MCP over stdio (the default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cfgPath, url)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(Version)
		},
	})

	return root
}

func serve(cfgPath, url string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if url != "" {
		cfg.URL = url
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	policy := linklib.RetryPolicy{
		MaxRetries:     cfg.MaxRetries,
		RetryDelay:     cfg.RetryDelay,
		CommandTimeout: cfg.CommandTimeout,
	}

	link := linklib.NewLink(cfg.URL, policy, log.Named("link"))
	defer link.Disconnect()

	ctrl := avatar.NewController(link, log.Named("avatar"))

	s := server.NewMCPServer("pinocchio", Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)
	tools.Register(s, ctrl, link, log.Named("tools"))

	log.Info("serving MCP over stdio",
		zap.String("renderer", cfg.URL),
		zap.String("version", Version),
	)
	return server.ServeStdio(s)
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	return zc.Build()
}
