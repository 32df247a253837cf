package main

import (
	"log"
	"os"

	"github.com/d2718/camp-demo/core"
	"github.com/d2718/camp-demo/core/registry"
	emailsvc "github.com/d2718/camp-demo/services/email"
	logsvc "github.com/d2718/camp-demo/services/logging"
	"github.com/d2718/camp-demo/storage/database/academic"
	"github.com/d2718/camp-demo/storage/database/credentials"
)

func main() {
	defer os.Exit(0)

	cfg := core.LoadConfig()
	logger, err := logsvc.NewZapLogger(cfg)
	if err != nil {
		log.Fatalf("building logger: %v", err)
	}
	var alert core.Logger
	if cfg.RollbarToken != "" {
		alert = logsvc.NewRollbarLogger(logger, cfg)
	}

	mail := emailsvc.NewConsoleService(cfg)
	if cfg.SendgridAPIKey != "" {
		mail = emailsvc.NewSendgridService(cfg, logger)
	}

	academicStore, err := academic.Open(cfg, logger)
	errAndDie(logger, err)
	defer func() { _ = academicStore.Close() }()

	credentialsStore, err := credentials.Open(cfg, logger)
	errAndDie(logger, err)
	defer func() { _ = credentialsStore.Close() }()

	cli := commandLine{
		cfg:         cfg,
		log:         logger,
		academic:    academicStore,
		credentials: credentialsStore,
		reg:         registry.New(cfg, logger, alert, academicStore, credentialsStore),
		mail:        mail,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error("command failed", err)
		}
		os.Exit(1)
	}
}

func errAndDie(logger core.Logger, err error) {
	if err != nil {
		logger.Fatal(err.Error())
	}
}
