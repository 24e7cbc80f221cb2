package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"orcamento/internal/amqp"
	"orcamento/internal/backend"
	"orcamento/internal/cli"
	"orcamento/internal/etl"
	"orcamento/internal/log"
	"orcamento/internal/sheets/google"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()

	logger, logCloser := cli.SetupLogger(cfg, log.ComponentETL)
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo := cli.OpenRepository(ctx, logger, cfg)
	defer repo.Close()

	opts := []etl.Option{etl.WithBatchSize(cfg.ETLBatchSize)}

	if repo.Type == backend.Postgres {
		dest, err := etl.AbrirDestinoCopy(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Warn("COPY sink unavailable, falling back to INSERT batches", log.FieldError, err)
		} else {
			defer dest.Close()
			opts = append(opts, etl.WithDestino(dest))
		}
	}

	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, load notification disabled", log.FieldError, err)
		} else {
			defer client.Close()
			opts = append(opts, etl.WithPublisher(client))
		}
	}

	entradas, err := etl.PlanejarDiretorio(cfg.ETLInputDir, logger)
	if err != nil {
		if cfg.GoogleSpreadsheetID == "" {
			logger.Error("Failed to read input directory", log.FieldError, err, "dir", cfg.ETLInputDir)
			os.Exit(1)
		}
		logger.Warn("Input directory unavailable, loading Google Sheets only", log.FieldError, err)
	}

	if cfg.GoogleSpreadsheetID != "" && cfg.GoogleSheetRange != "" {
		client, err := google.NewFromEnv(ctx, cfg.GoogleSpreadsheetID)
		if err != nil {
			logger.Error("Failed to create Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		for _, rng := range strings.Split(cfg.GoogleSheetRange, ",") {
			rng = strings.TrimSpace(rng)
			if rng == "" {
				continue
			}
			e, err := etl.EntradaPlanilha(client, rng)
			if err != nil {
				logger.WithComponent(log.ComponentSheets).Warn("Sheet range skipped", "range", rng, log.FieldError, err)
				continue
			}
			entradas = append(entradas, e)
		}
	}

	if len(entradas) == 0 {
		logger.Error("Nothing to load", "dir", cfg.ETLInputDir)
		os.Exit(1)
	}

	res, err := etl.NewRunner(repo.Repository, logger, opts...).Executar(ctx, entradas)
	if err != nil {
		logger.Error("ETL run failed", log.FieldError, err, log.FieldRunID, res.RunID)
		os.Exit(1)
	}
	logger.Info("ETL run complete",
		log.FieldRunID, res.RunID,
		log.FieldBanco, repo.Type.String(),
		"tabelas", strings.Join(res.Tabelas, ","),
		log.FieldLinhas, res.Linhas)
}
