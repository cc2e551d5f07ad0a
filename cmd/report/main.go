// Command report exports the scored records of one project as an XLSX
// screening sheet for human review.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/veslabs/litscreen/internal/config"
	"github.com/veslabs/litscreen/internal/infrastructure/report"
	"github.com/veslabs/litscreen/internal/infrastructure/repository/postgres"
)

func main() {
	projectID := flag.String("project", "", "project id to export")
	out := flag.String("out", "screening-report.xlsx", "output path")
	flag.Parse()

	if *projectID == "" {
		log.Fatal("missing required -project flag")
	}

	cfg := config.Load()
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("open postgres: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	records := postgres.NewRecordRepository(db)
	scored, err := records.ListScored(ctx, *projectID)
	if err != nil {
		log.Fatalf("list scored records: %v", err)
	}
	if len(scored) == 0 {
		log.Printf("project %s has no scored records yet", *projectID)
	}

	if err := report.WriteXLSX(*out, *projectID, scored); err != nil {
		log.Fatalf("write report: %v", err)
	}
	log.Printf("wrote %d records to %s", len(scored), *out)
}
