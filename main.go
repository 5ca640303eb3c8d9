package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/xerrors"

	"github.com/khaledhikmat/vs-segmenter/mode"
	"github.com/khaledhikmat/vs-segmenter/pipeline"
	"github.com/khaledhikmat/vs-segmenter/service/bridge"
	"github.com/khaledhikmat/vs-segmenter/service/broker"
	"github.com/khaledhikmat/vs-segmenter/service/config"
	"github.com/khaledhikmat/vs-segmenter/service/control"
	"github.com/khaledhikmat/vs-segmenter/service/data"
	"github.com/khaledhikmat/vs-segmenter/service/lgr"
	"github.com/khaledhikmat/vs-segmenter/service/pose"
	"github.com/khaledhikmat/vs-segmenter/service/storage"
)

var modeProcessors = map[string]mode.Processor{
	"node":   mode.Node,
	"replay": mode.Replay,
}

func main() {
	rootCtx := context.Background()
	canxCtx, canxFn := context.WithCancel(rootCtx)

	// Load env vars if we are in DEV mode
	if os.Getenv("RUN_TIME_ENV") == "dev" || os.Getenv("RUN_TIME_ENV") == "" {
		lgr.Logger.Info("loading env vars from .env file")
		err := godotenv.Load()
		if err != nil {
			lgr.Logger.Warn("no .env file loaded", slog.Any("error", err))
		}
	}
	// Replaces lgr.Logger; must happen before any goroutine logs.
	lgr.Configure()

	// Hook up a signal handler to cancel the context
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	watchSignals(sigChan, canxFn)

	modeType := "node"
	args := os.Args[1:]
	if len(args) > 0 {
		modeType = args[0]
	}

	modeProc, ok := modeProcessors[modeType]
	if !ok {
		lgr.Logger.Error("invalid mode", slog.String("mode", modeType))
		os.Exit(2)
	}

	// Create the services needed for the mode processor
	// They can be overridden by the mode processor with different implementations
	cfgSvc := config.NewEnv()
	dataSvc := data.NewFilesDB(cfgSvc)
	storageSvc := storage.NewLocal(cfgSvc)

	var poseSvc pose.IService = pose.NewSimulated(cfgSvc)
	if _, err := os.Stat(cfgSvc.GetPosesInputFile()); err == nil {
		recorded, err := pose.NewRecorded(cfgSvc.GetPosesInputFile())
		if err != nil {
			lgr.Logger.Error("error loading recorded poses", slog.Any("error", xerrors.New(err.Error())))
			os.Exit(1)
		}
		poseSvc = recorded
	}

	svcs := pipeline.ServicesFactory{
		CfgSvc:     cfgSvc,
		DataSvc:    dataSvc,
		PoseSvc:    poseSvc,
		BridgeSvc:  bridge.NewGoCV(),
		StorageSvc: storageSvc,
	}

	if cfgSvc.GetMQTTBroker() != "" {
		client, err := broker.Dial(cfgSvc)
		if err != nil {
			lgr.Logger.Error("error connecting to mqtt broker", slog.Any("error", xerrors.New(err.Error())))
			os.Exit(1)
		}
		svcs.BrokerSvc = broker.NewMQTT(client)
		svcs.ControlSvc = control.NewMQTT(cfgSvc, client)
		defer svcs.BrokerSvc.Close()
	}

	// Mode processors bound their own shutdown wait
	modeErr := modeProc(canxCtx, svcs)
	canxFn()

	if modeErr != nil {
		lgr.Logger.Error(
			"node mode processor exited",
			slog.String("mode", modeType),
			slog.Any("error", xerrors.New(modeErr.Error())),
		)
		if svcs.BrokerSvc != nil {
			svcs.BrokerSvc.Close()
		}
		// Let the logger flush before exiting.
		time.Sleep(100 * time.Millisecond)
		os.Exit(1)
	}

	lgr.Logger.Info("node exited", slog.String("mode", modeType))
}

// watchSignals cancels on the first signal. lgr.Configure must have run.
func watchSignals(sigChan <-chan os.Signal, canxFn context.CancelFunc) {
	go func() {
		sig := <-sigChan
		lgr.Logger.Info(
			"received kill signal",
			slog.Any("signal", sig),
		)
		canxFn()
	}()
}
