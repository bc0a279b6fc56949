package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"dealer_hunt/migrations"
)

func main() {
	driver := flag.String("driver", envOrDefault("DB_DRIVER", "sqlite"), "database driver: sqlite or postgres")
	dbPath := flag.String("db", envOrDefault("DATABASE_PATH", "./data/hunter.db"), "path to sqlite database")
	dbURL := flag.String("url", os.Getenv("DATABASE_URL"), "postgres connection URL")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: migrate [-driver sqlite|postgres] [-db path] [-url dsn] <command>")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Commands:")
		fmt.Fprintln(os.Stderr, "  up          Migrate to the latest version")
		fmt.Fprintln(os.Stderr, "  up-one      Migrate one version up")
		fmt.Fprintln(os.Stderr, "  down        Roll back one version")
		fmt.Fprintln(os.Stderr, "  status      Show migration status")
		fmt.Fprintln(os.Stderr, "  version     Show current version")
		fmt.Fprintln(os.Stderr, "  reset       Roll back all migrations")
		os.Exit(1)
	}

	var (
		sqlDriver, dsn, dialect string
	)
	switch *driver {
	case "sqlite":
		sqlDriver, dsn, dialect = "sqlite", *dbPath, migrations.DialectSQLite
	case "postgres":
		if *dbURL == "" {
			log.Fatal("postgres requires -url or DATABASE_URL")
		}
		sqlDriver, dsn, dialect = "pgx", *dbURL, migrations.DialectPostgres
	default:
		log.Fatalf("unknown driver: %s", *driver)
	}

	dir, err := migrations.Dir(dialect)
	if err != nil {
		log.Fatal(err)
	}

	db, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect(dialect); err != nil {
		log.Fatalf("set dialect: %v", err)
	}

	cmd := args[0]
	switch cmd {
	case "up":
		err = goose.Up(db, dir)
	case "up-one":
		err = goose.UpByOne(db, dir)
	case "down":
		err = goose.Down(db, dir)
	case "status":
		err = goose.Status(db, dir)
	case "version":
		err = goose.Version(db, dir)
	case "reset":
		err = goose.Reset(db, dir)
	default:
		log.Fatalf("unknown command: %s", cmd)
	}

	if err != nil {
		log.Fatalf("%s: %v", cmd, err)
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
