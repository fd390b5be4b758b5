/*
main.go - Batch invoice generation CLI

PURPOSE:
  Runs the whole pipeline once from the command line: read the monthly
  sales workbook, allocate stock, generate the synthetic invoices and
  write the output workbooks. This is the offline counterpart of
  POST /api/runs.

COMMAND-LINE FLAGS:
  -in        Sales workbook path (required)
  -out       Invoice workbook path (default: facturas.xlsx)
  -stock     Optional path for the intermediate stock table
  -date      Reference date YYYY-MM-DD (default: today)
  -seed      Random seed (overrides ENGINE_SEED)
  -target    Aggregate sales target in eggs, 0 = sell everything
  -strategy  "exact" (default) or "heuristic"

EXAMPLES:
  ./generate -in=ventas_marzo.xlsx -out=facturas_marzo.xlsx -seed=42
  ./generate -in=ventas.xlsx -stock=stock.xlsx -target=45000 -strategy=heuristic

ENVIRONMENT:
  ENGINE_* variables override engine defaults (see engine/config.go).
  A .env file in the working directory is loaded first.

SEE ALSO:
  - xlsx/reader.go: Workbook parsing
  - engine/pipeline.go: The pipeline itself
*/
package main

import (
	"context"
	"flag"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/warp/invoice-engine/engine"
	"github.com/warp/invoice-engine/xlsx"
)

func main() {
	_ = godotenv.Load()

	in := flag.String("in", "", "sales workbook path")
	out := flag.String("out", "facturas.xlsx", "invoice workbook path")
	stock := flag.String("stock", "", "optional intermediate stock table path")
	date := flag.String("date", "", "reference date YYYY-MM-DD (default: today)")
	seed := flag.Int64("seed", 0, "random seed (0 = keep configured seed)")
	target := flag.Int("target", 0, "aggregate sales target in eggs (0 = sell everything)")
	strategy := flag.String("strategy", "exact", `allocation strategy: "exact" or "heuristic"`)
	flag.Parse()

	log := logrus.New()

	if *in == "" {
		log.Fatal("missing -in: sales workbook path is required")
	}

	cfg := engine.FromEnv()
	if *seed != 0 {
		cfg.Seed = *seed
	}
	if *target > 0 {
		cfg.TargetSales = *target
	}

	reference := time.Now().UTC().Truncate(24 * time.Hour)
	if *date != "" {
		parsed, err := time.Parse("2006-01-02", *date)
		if err != nil {
			log.WithError(err).Fatal("invalid -date, expected YYYY-MM-DD")
		}
		reference = parsed
	}

	records, err := xlsx.ReadSales(*in)
	if err != nil {
		log.WithError(err).Fatal("failed to read sales workbook")
	}
	log.WithFields(logrus.Fields{"records": len(records), "file": *in}).Info("sales loaded")

	var strat engine.AllocationStrategy
	if *strategy == "heuristic" {
		strat = engine.NewHeuristicAllocation(cfg)
	} else {
		strat = engine.NewExactLPAllocation()
	}

	planner := engine.NewPlanner(cfg, strat)
	planner.Log = log

	plan, err := planner.Run(context.Background(), records, reference)
	if err != nil {
		log.WithError(err).Fatal("pipeline failed")
	}

	if *stock != "" {
		if err := xlsx.WriteStock(*stock, plan.Groups); err != nil {
			log.WithError(err).Fatal("failed to write stock table")
		}
		log.WithField("file", *stock).Info("stock table written")
	}

	if err := xlsx.WriteInvoicesFile(*out, plan); err != nil {
		log.WithError(err).Fatal("failed to write invoice workbook")
	}

	log.WithFields(logrus.Fields{
		"file":     *out,
		"invoices": len(plan.Invoices),
		"total":    plan.TotalValue.String(),
		"held":     plan.HeldBack,
	}).Info("invoices written")
}
