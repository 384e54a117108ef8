// Example: Stream large results of several queries at once and allow cancel by Ctrl+C.
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
	"runtime/debug"
	"runtime/pprof"

	"github.com/gobq/gobq"
	"golang.org/x/sync/errgroup"
)

var (
	cpuprofile  = flag.String("cpuprofile", "", "write cpu profile to file")
	memprofile  = flag.String("memprofile", "", "write memory profile to this file")
	parallelism = flag.Int("parallelism", 3, "number of queries streamed at once")
	bufferSize  = flag.Int("buffer", 10000, "rows buffered per query")
	prefetch    = flag.Int64("prefetch", 10000, "rows per page")
)

const query = `SELECT a, b, c
FROM UNNEST(GENERATE_ARRAY(0, 999)) AS a,
	UNNEST(GENERATE_ARRAY(0, 99)) AS b,
	UNNEST(GENERATE_ARRAY(0, 99)) AS c`

// stream reads every row of one query and returns how many it saw.
func stream(ctx context.Context, conn *gobq.Connection, id int) (int64, error) {
	rows, err := conn.ExecuteSelectWithParams(ctx, query, nil, map[string]string{"example": "selectmany"})
	if err != nil {
		return 0, fmt.Errorf("query %v: %w", id, err)
	}
	defer rows.Close()
	fmt.Printf("query %v: job %v reports %v rows\n", id, rows.JobID(), rows.TotalRows())
	var counter int64
	for {
		row, err := rows.NextRow(ctx)
		if errors.Is(err, io.EOF) {
			return counter, nil
		}
		if err != nil {
			return counter, fmt.Errorf("query %v after %v rows: %w", id, counter, err)
		}
		if counter%1000000 == 0 {
			fmt.Printf("query %v data: %v\n", id, row)
			debug.FreeOSMemory()
		}
		counter++
	}
}

// run is an actual main
func run(project string) {
	// handler interrupt signal
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 1)
	defer close(c)
	signal.Notify(c, os.Interrupt)
	defer func() {
		signal.Stop(c)
	}()
	go func() {
		select {
		case <-c:
			cancel()
		case <-ctx.Done():
		}
	}()

	cfg := gobq.NewConfig(project)
	cfg.BufferSize = *bufferSize
	settings := &gobq.ConnectionSettings{
		PrefetchedRowLimit: gobq.Int64(*prefetch),
		UseQueryCache:      gobq.Bool(false),
	}
	conn, err := gobq.NewConnection(ctx, cfg, settings)
	if err != nil {
		log.Fatalf("failed to connect. err: %v", err)
	}
	defer conn.Close()

	fmt.Printf("Executing %v queries. It may take long. You may stop by Ctrl+C.\n", *parallelism)
	g, gctx := errgroup.WithContext(ctx)
	counts := make([]int64, *parallelism)
	for i := 0; i < *parallelism; i++ {
		g.Go(func() error {
			n, err := stream(gctx, conn, i)
			counts[i] = n
			return err
		})
	}
	if err = g.Wait(); err != nil {
		if sent, cerr := conn.Cancel(context.Background()); sent || cerr != nil {
			fmt.Printf("cancelled running jobs. err: %v\n", cerr)
		}
		fmt.Printf("ERROR: %v\n", err)
		return
	}
	for i, n := range counts {
		fmt.Printf("query %v: %v rows\n", i, n)
	}
	fmt.Printf("Congrats! You have successfully streamed %v queries with BigQuery!\n", *parallelism)
}

func main() {
	if !flag.Parsed() {
		flag.Parse()
	}

	project := os.Getenv("GOBQ_TEST_PROJECT")
	if project == "" {
		log.Fatal("GOBQ_TEST_PROJECT environment variable is not set.")
	}

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			log.Fatal(err)
		}
		err = pprof.StartCPUProfile(f)
		if err != nil {
			log.Fatal(err)
		}
		defer pprof.StopCPUProfile()
	}

	run(project)

	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		if err != nil {
			log.Fatal(err)
		}
		err = pprof.WriteHeapProfile(f)
		if err != nil {
			log.Fatal(err)
		}
		err = f.Close()
		if err != nil {
			log.Fatal(err)
		}
	}
}
