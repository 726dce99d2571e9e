package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/banshee-data/rover/internal/store"
)

const migrateUsage = `Usage: rover migrate <action> [version]

Actions:
  up               apply all pending migrations
  down             roll back one migration
  status           show the current schema version
  version <n>      migrate up or down to version n
  force <n>        mark version n as current without running it (recovery only)
`

var errMigrateUsage = errors.New("invalid migrate arguments")

// runMigrate handles the migrate subcommand against the database at dbPath.
func runMigrate(args []string, dbPath string, out io.Writer) error {
	if len(args) < 1 || args[0] == "help" {
		fmt.Fprint(out, migrateUsage)
		if len(args) < 1 {
			return errMigrateUsage
		}
		return nil
	}

	action := args[0]
	var target int
	switch action {
	case "up", "down", "status":
	case "version", "force":
		if len(args) < 2 {
			fmt.Fprint(out, migrateUsage)
			return errMigrateUsage
		}
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 0 {
			return fmt.Errorf("invalid version number: %s", args[1])
		}
		target = n
	default:
		fmt.Fprintf(out, "Unknown migrate action: %s\n\n%s", action, migrateUsage)
		return errMigrateUsage
	}

	st, err := store.OpenNoMigrate(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer st.Close()

	switch action {
	case "up":
		err = st.MigrateUp()
	case "down":
		err = st.MigrateDown()
	case "version":
		err = st.MigrateTo(uint(target))
	case "force":
		err = st.MigrateForce(target)
	}
	if err != nil {
		return err
	}

	version, dirty, err := st.MigrateVersion()
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	fmt.Fprintf(out, "Current version: %d (dirty: %v)\n", version, dirty)
	if dirty {
		fmt.Fprintln(out, "A migration failed mid-execution. Fix the schema, then run: rover migrate force <version>")
	}
	return nil
}
