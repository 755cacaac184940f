package main

import (
	"context"
	"fmt"
	"os"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"go.uber.org/zap"

	"github.com/thereayou/cipherchat/cmd/server"
	"github.com/thereayou/cipherchat/internal/config"
	"github.com/thereayou/cipherchat/internal/logger"
)

func main() {
	config.LoadDotEnv()

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}
	defer log.Sync()

	srv, err := server.NewServer(cfg, log)
	if err != nil {
		log.Fatal("failed to build server", zap.Error(err))
	}

	go func() {
		if err := srv.Run(); err != nil {
			log.Fatal("server run error", zap.Error(err))
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"server": func(ctx context.Context) error {
				log.Info("graceful shutdown initiated")
				return srv.Shutdown(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Info("server exited", zap.Int("code", exitCode))
	log.Sync()
	os.Exit(exitCode)
}
