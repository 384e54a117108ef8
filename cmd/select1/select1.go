package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/gobq/gobq"
)

func main() {
	if !flag.Parsed() {
		flag.Parse()
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	defer func() {
		signal.Stop(c)
		cancel()
	}()
	go func() {
		<-c
		log.Println("Caught signal, canceling...")
		cancel()
	}()

	// get environment variables
	env := func(k string) string {
		if value := os.Getenv(k); value != "" {
			return value
		}
		log.Fatalf("%v environment variable is not set.", k)
		return ""
	}

	cfg := gobq.NewConfig(env("GOBQ_TEST_PROJECT"))
	cfg.Location = os.Getenv("GOBQ_TEST_LOCATION")
	conn, err := gobq.NewConnection(ctx, cfg, nil)
	if err != nil {
		log.Fatalf("failed to connect. err: %v", err)
	}
	defer conn.Close()

	query := "SELECT 1"
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
