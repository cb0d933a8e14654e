package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"miniredis/internal/config"
	"miniredis/internal/logger"
	"miniredis/internal/server"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("redis-server", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)
	var configPath string
	var addr string
	fs.StringVar(&configPath, "config", "", "Configuration file path (YAML)")
	fs.StringVar(&configPath, "c", "", "Configuration file path (YAML)")
	fs.StringVar(&addr, "addr", "", "Listen address, overrides config file")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 1
	}

	var cfg *config.Config
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			return 1
		}
		cfg = loaded
	} else {
		cfg = &config.Config{}
		cfg.ApplyDefaults()
	}
	if addr != "" {
		cfg.Listen.Addr = addr
	}

	if err := logger.Init(cfg.Log.Dir, parseLevel(cfg.Log.Level), cfg.Log.Prefix); err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		return 1
	}
	defer logger.Close()

	listener, err := net.Listen("tcp", cfg.Listen.Addr)
	if err != nil {
		logger.Error("listen on %s: %v", cfg.Listen.Addr, err)
		return 1
	}
	logger.Printf("listening on %s (max connections: %d)", cfg.Listen.Addr, cfg.Listen.MaxConnections)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(listener, cfg.Listen.MaxConnections, cfg.Store.PubSubBufferSize)
	if err := srv.Run(ctx); err != nil {
		logger.Error("server stopped: %v", err)
		return 1
	}
	logger.Printf("shutdown complete")
	return 0
}

func parseLevel(s string) logger.Level {
	switch s {
	case "debug":
		return logger.DEBUG
	case "warn":
		return logger.WARN
	case "error":
		return logger.ERROR
	default:
		return logger.INFO
	}
}
