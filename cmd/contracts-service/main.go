package main

import (
	"fmt"
	"os"

	"github.com/arman-dn/fleetops-contracts/internal/auth"
	"github.com/arman-dn/fleetops-contracts/internal/config"
	"github.com/arman-dn/fleetops-contracts/internal/db"
	"github.com/arman-dn/fleetops-contracts/internal/excel"
	httphandler "github.com/arman-dn/fleetops-contracts/internal/http"
	"github.com/arman-dn/fleetops-contracts/internal/http/middleware"
	"github.com/arman-dn/fleetops-contracts/internal/jobs"
	"github.com/arman-dn/fleetops-contracts/internal/logger"
	"github.com/arman-dn/fleetops-contracts/internal/pdf"
	"github.com/arman-dn/fleetops-contracts/internal/repository"
	"github.com/arman-dn/fleetops-contracts/internal/scheduler"
	"github.com/arman-dn/fleetops-contracts/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment)

	database, err := db.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}

	contractRepo := repository.NewContractRepository(database)
	editRepo := repository.NewEditRepository(database)
	auditRepo := repository.NewAuditRepository(database)
	directoryRepo := repository.NewDirectoryRepository(database)

	contractService := service.NewContractService(
		contractRepo,
		editRepo,
		auditRepo,
		directoryRepo,
		pdf.NewGenerator(),
		excel.NewGenerator(),
		cfg,
		log,
	)

	runner := jobs.NewRunner(contractService, log)
	sched, err := scheduler.New(cfg, runner, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init scheduler")
	}
	sched.Start()
	defer sched.Stop()

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)
	handler := httphandler.NewHandler(contractService, log)
	authMiddleware := middleware.Auth(tokenParser)
	router := httphandler.NewRouter(handler, authMiddleware, cfg.Environment)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	log.Info().Str("addr", addr).Msg("starting contracts service")

	if err := router.Run(addr); err != nil {
		log.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}
