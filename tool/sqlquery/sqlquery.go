// Package sqlquery exposes SQL execution as an agent tool. The handler never
// returns an error to the agent loop: every failure is reported inside the
// structured result payload so the model can see it and recover.
package sqlquery

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq" // postgres driver

	"github.com/sweetpotato0/chatgraph/pkg/logging"
	"github.com/sweetpotato0/chatgraph/tool"
)

// ToolName is the name the model uses to invoke the query tool.
const ToolName = "execute_query"

// Open connects to the database using the postgres driver and verifies the
// connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// New builds the execute_query tool on top of the given database handle.
func New(db *sql.DB) *tool.Tool {
	logger := logging.WithComponent("sqlquery")
	return &tool.Tool{
		Name:        ToolName,
		Description: "Execute a SQL query against the application database and return rows, row count and timing.",
		Parameters: []tool.Parameter{
			{
				Name:        "sql_query",
				Type:        "string",
				Description: "The SQL query string to execute",
				Required:    true,
			},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			query, _ := args["sql_query"].(string)
			if query == "" {
				return tool.Failure("sql_query must be a non-empty string").Encode(), nil
			}
			return run(ctx, db, query, logger).Encode(), nil
		},
	}
}

func run(ctx context.Context, db *sql.DB, query string, logger *slog.Logger) tool.Result {
	start := time.Now()

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		logger.Error("query execution failed", "error", err, "query", query)
		return tool.Failure(fmt.Sprintf("Query execution failed: %v", err))
	}
	defer rows.Close()

	records, err := scanRows(rows)
	if err != nil {
		logger.Error("row scan failed", "error", err, "query", query)
		return tool.Failure(fmt.Sprintf("Query execution failed: %v", err))
	}

	elapsed := time.Since(start).Milliseconds()
	logger.Debug("query executed", "rows", len(records), "elapsed_ms", elapsed)

	return tool.Result{
		Successful:  true,
		Data:        records,
		RecordCount: len(records),
		ElapsedMs:   elapsed,
	}
}

func scanRows(rows *sql.Rows) ([]map[string]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	records := make([]map[string]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}

		record := make(map[string]any, len(columns))
		for i, col := range columns {
			v := values[i]
			// Drivers hand back []byte for text-ish columns.
			if b, ok := v.([]byte); ok {
				record[col] = string(b)
			} else {
				record[col] = v
			}
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
