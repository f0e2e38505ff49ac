// Command migrate bootstraps the job history schema. It is a plain
// database/sql tool so it can run in CI and deploy hooks without the
// application's connection pool.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"

	_ "github.com/lib/pq"

	"github.com/joho/godotenv"
)

const schema = `
CREATE TABLE IF NOT EXISTS generation_jobs (
    id         TEXT PRIMARY KEY,
    session_id TEXT NOT NULL,
    prompt     TEXT NOT NULL,
    status     TEXT NOT NULL,
    output     TEXT[] NOT NULL DEFAULT '{}',
    detail     TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_generation_jobs_session
    ON generation_jobs (session_id, created_at DESC);
`

func main() {
	_ = godotenv.Load()

	var databaseURL string
	flag.StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "postgres connection string")
	flag.Parse()

	if databaseURL == "" {
		fmt.Fprintln(os.Stderr, "migrate: DATABASE_URL or -database-url is required")
		os.Exit(1)
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "migrate: open: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: ping: %v\n", err)
		os.Exit(1)
	}

	if _, err := db.Exec(schema); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: apply schema: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("migrate: schema up to date")
}
