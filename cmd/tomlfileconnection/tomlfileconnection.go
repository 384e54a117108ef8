// Example: How to connect with a toml file configuration
// Prerequisite: a connections.toml with permission 0600 holding a named table, e.g.
//
//	[default]
//	project = "my-project"
//	location = "US"
//	prefetched_row_limit = 10000
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/gobq/gobq"
)

func main() {
	if !flag.Parsed() {
		flag.Parse()
	}

	os.Setenv("GOBQ_HOME", "<The directory path where the toml file exists>")
	os.Setenv("GOBQ_DEFAULT_CONNECTION_NAME", "<Connection Name>")

	cfg, settings, err := gobq.LoadConnectionConfig("", "")
	if err != nil {
		log.Fatalf("failed to create Config, err: %v", err)
	}
	if err = gobq.GetLogger().SetLogLevel("info"); err != nil {
		log.Fatalf("failed to set log level, err: %v", err)
	}

	ctx := context.Background()
	conn, err := gobq.NewConnection(ctx, cfg, settings)
	if err != nil {
		log.Fatalf("failed to connect to %v, err: %v", cfg.ProjectID, err)
	}
	defer conn.Close()

	query := "SELECT 1"
	if dry, err := conn.DryRun(ctx, query); err == nil {
		fmt.Printf("%v statement, %v bytes to process\n", dry.StatementType, dry.TotalBytesProcessed)
	}
	rows, err := conn.ExecuteSelect(ctx, query)
	if err != nil {
		log.Fatalf("failed to run a query. %v, err: %v", query, err)
	}
	defer rows.Close()
	for {
		row, err := rows.NextRow(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			fmt.Printf("ERROR: %v\n", err)
			return
		}
		if v, ok := row[0].(int64); !ok || v != 1 {
			log.Fatalf("failed to get 1. got: %v", row[0])
		}
	}
	fmt.Printf("Congrats! You have successfully run %v with BigQuery!\n", query)
}
