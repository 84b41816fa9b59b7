package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/eduwebgroup/affipay/acquirer"
	"github.com/joho/godotenv"
	"golang.org/x/exp/slog"
)

func main() {
	// A local .env is a convenience; env vars win.
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout))

	app := acquirer.NewApp(logger, acquirer.ConfigFromEnv())
	if err := app.Start(); err != nil {
		logger.Error("starting app", "err", err)
		os.Exit(1)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	app.Shutdown()
}
