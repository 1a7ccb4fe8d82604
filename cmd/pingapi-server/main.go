package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-mclib/pingapi/pkg/helpers"
	"github.com/go-mclib/pingapi/pkg/tui"
)

func main() {
	var f helpers.Flags
	helpers.RegisterFlags(nil, &f)
	flag.Parse()

	logger := helpers.NewLogger()
	cfg, err := helpers.LoadConfig(f)
	if err != nil {
		logger.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := NewApp(cfg, logger)
	if err != nil {
		logger.Fatalf("setup: %v", err)
	}
	app.Server.Verbose = f.Verbose

	if f.Interactive {
		err = runInteractive(ctx, app)
	} else {
		err = app.Run(ctx)
	}
	app.Close()
	if err != nil {
		logger.Println(err)
		os.Exit(1)
	}
}

func runInteractive(ctx context.Context, app *App) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	program, writer := tui.Start(app)
	app.SetLogger(log.New(writer, "", log.LstdFlags))
	defer program.Quit()

	tuiDone := make(chan error, 1)
	go func() {
		_, err := program.Run()
		tuiDone <- err
	}()

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- app.Run(ctx)
	}()

	select {
	case err := <-tuiDone:
		cancel()
		if serr := <-serverDone; err == nil {
			err = serr
		}
		return err
	case err := <-serverDone:
		return err
	}
}
