package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"codeberg.org/tekogu/battwatch/internal/broker"
	"codeberg.org/tekogu/battwatch/internal/command"
	"codeberg.org/tekogu/battwatch/internal/config"
	"codeberg.org/tekogu/battwatch/internal/discovery"
	"codeberg.org/tekogu/battwatch/internal/logger"
	"codeberg.org/tekogu/battwatch/internal/monitor"
	"codeberg.org/tekogu/battwatch/internal/sensor"
	"codeberg.org/tekogu/battwatch/internal/sysaction"
)

var (
	cfg      *config.Config
	settings *config.SettingsStore
)

func init() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Debug, cfg.Verbose, logger.IsService())
	logger.Debug().Msg("Config loaded")

	settings, err = config.LoadSettings(cfg.SettingsFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load settings")
	}
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	power, err := sensor.NewINA219(sensor.DefaultI2CBus, sensor.DefaultI2CAddress)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to probe battery sensor")
	}

	actions := sysaction.NewRunner(cfg.System.Shutdown, cfg.System.Restart)
	latch := &sysaction.ShutdownLatch{}

	client := broker.New(cfg)
	handler := command.NewHandler(cfg, settings, actions, latch, client)
	client.SetCommandSink(handler.Enqueue)

	var disc *discovery.Publisher
	if cfg.HomeAssistant.Discovery {
		disc, err = discovery.New(cfg, client)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to build discovery configuration")
		}
		client.OnConnect(disc.Announce)
	}

	if err := client.Connect(); err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to broker")
	}
	defer client.Disconnect()

	go handler.Run(ctx)
	if disc != nil {
		go disc.Run(ctx)
	}

	mon := monitor.New(cfg, settings, power, sensor.NewCPU(), client, actions, latch)
	if err := mon.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("error in monitor loop")
	}
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}
