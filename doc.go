/*
Package gobq runs SELECT queries against BigQuery and streams their results.

# Connecting

A Connection is built from a Config and optional ConnectionSettings:

	cfg := gobq.NewConfig("my-project")
	cfg.Location = "US"
	conn, err := gobq.NewConnection(ctx, cfg, nil)
	if err != nil {
		// handle error
	}
	defer conn.Close()

Both can also be read from a TOML file with LoadConnectionConfig. The file
is looked up in $GOBQ_HOME/connections.toml or ~/.gobq/connections.toml and
holds one table per named connection:

	[default]
	project = "my-project"
	location = "US"
	max_results = 10000
	use_query_cache = true

The file must not be writable by group or others.

# Running queries

ExecuteSelect submits the query and returns a Rows cursor as soon as the
first page is known:

	rows, err := conn.ExecuteSelect(ctx, "SELECT name, age FROM ds.people")
	if err != nil {
		// handle error
	}
	defer rows.Close()
	for {
		row, err := rows.NextRow(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			// handle error
		}
		fmt.Println(row...)
	}

Queries whose settings only need the stateless jobs.query call are sent that
way. Settings that only a query job supports, such as a destination table or
a write disposition, make the connection insert a job instead. Either way the
job is polled until it completes.

Parameters are passed with ExecuteSelectWithParams, built with NamedParameter
or PositionalParameter.

# Result paging

Small results come back inline. Larger ones are paged from the destination
table with tabledata.list, and results that are large both in absolute terms
and relative to the first page are read through the BigQuery Storage Read API
as Arrow record batches. ReadClientConnectionConfiguration tunes that choice.

Rows are produced by a background goroutine into a bounded buffer, so at most
BufferSize rows are held in memory ahead of the reader. Closing Rows stops
the producer and releases its resources.

# Retries

Every RPC is retried on transient failures with exponential backoff, as
described by Config.RetrySettings. Messages listed in Config.RetryConfig are
treated as transient as well. Failures reported by the query itself are
never retried.

# Errors

Errors returned by the package are *BigQueryError values carrying a numbered
code, the job id when one is known, and every error entry reported by the
backend. IsNotFound and IsQueryError classify them.

# Logging

The package logs through a logrus backed logger at the error level by
default. Use GetLogger().SetLogLevel to change it or SetLogger to install
another BQLogger. Job and request ids are attached to log lines from the
context.
*/
package gobq
