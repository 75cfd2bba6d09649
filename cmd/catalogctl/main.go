// Command catalogctl exports, imports and migrates the catalog database
// while the server is stopped.
package main

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/jessevdk/go-flags"

	"github.com/lysyi3m/critique-desk/app/catalog"
	"github.com/lysyi3m/critique-desk/app/database"
)

type globalOptions struct {
	DBPath string `long:"db-path" env:"DB_PATH" default:"./data/catalog.db" description:"SQLite database file"`
}

type exportCommand struct {
	global *globalOptions
	Output string `short:"o" long:"output" default:"-" description:"Snapshot file to write, - for stdout"`
}

type importCommand struct {
	global  *globalOptions
	Replace bool `long:"replace" description:"Remove entries missing from the snapshot"`
	Strict  bool `long:"strict" description:"Refuse the whole snapshot when any record is invalid"`
	Args    struct {
		Input string `positional-arg-name:"snapshot" description:"Snapshot file to read, - for stdin"`
	} `positional-args:"yes" required:"yes"`
}

type migrateCommand struct {
	global *globalOptions
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	if err := run(os.Args[1:]); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			return
		}
		os.Exit(1)
	}
}

func run(args []string) error {
	var global globalOptions
	parser := flags.NewParser(&global, flags.Default)

	commands := []struct {
		name, short string
		data        any
	}{
		{"export", "Write the catalog as a YAML snapshot", &exportCommand{global: &global}},
		{"import", "Load a YAML snapshot into the catalog", &importCommand{global: &global}},
		{"migrate", "Apply database migrations", &migrateCommand{global: &global}},
	}
	for _, c := range commands {
		if _, err := parser.AddCommand(c.name, c.short, "", c.data); err != nil {
			return err
		}
	}

	_, err := parser.ParseArgs(args)
	return err
}

func openDB(path string) (*database.DB, error) {
	db, err := database.Open(path)
	if err != nil {
		return nil, err
	}
	if _, _, err := database.RunMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func (c *migrateCommand) Execute([]string) error {
	db, err := database.Open(c.global.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		return err
	}
	slog.Info("Migrations applied", "db", c.global.DBPath, "version", version, "dirty", dirty)
	return nil
}

func (c *exportCommand) Execute([]string) error {
	ctx := context.Background()

	db, err := openDB(c.global.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	entries, lastIngested, err := database.LoadCatalog(ctx, database.NewEntryRepository(db), database.NewSettingsRepository(db))
	if err != nil {
		return err
	}
	slices.SortFunc(entries, func(a, b *catalog.Entry) int { return cmp.Compare(a.ID, b.ID) })

	var w io.Writer = os.Stdout
	if c.Output != "-" {
		f, err := os.Create(c.Output)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", c.Output, err)
		}
		defer f.Close()
		w = f
	}

	if err := catalog.WriteSnapshot(w, catalog.NewSnapshot(entries, lastIngested)); err != nil {
		return err
	}
	slog.Info("Catalog exported", "entries", len(entries), "output", c.Output)
	return nil
}

func (c *importCommand) Execute([]string) error {
	ctx := context.Background()

	var r io.Reader = os.Stdin
	if c.Args.Input != "-" {
		f, err := os.Open(c.Args.Input)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", c.Args.Input, err)
		}
		defer f.Close()
		r = f
	}

	snapshot, err := catalog.ReadSnapshot(r)
	if err != nil {
		return err
	}
	entries, err := snapshot.Decode()
	if err != nil {
		if c.Strict {
			return err
		}
		slog.Warn("Skipping invalid records", "error", err)
	}

	db, err := openDB(c.global.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	entryRepo := database.NewEntryRepository(db)
	settingsRepo := database.NewSettingsRepository(db)

	changes := catalog.Changes{Upserts: entries, LastIngested: snapshot.Watermark()}

	// A merge never moves the watermark back; --replace takes the snapshot's as is.
	if !c.Replace && !changes.LastIngested.IsZero() {
		stored, err := settingsRepo.GetTime(ctx, database.KeyLastIngested)
		if err != nil {
			return fmt.Errorf("failed to read watermark: %w", err)
		}
		if stored != nil && !changes.LastIngested.After(*stored) {
			slog.Info("Keeping newer stored watermark", "stored", stored.Unix(), "snapshot", snapshot.LastIngested)
			changes.LastIngested = time.Time{}
		}
	}

	if c.Replace {
		existing, _, err := database.LoadCatalog(ctx, entryRepo, settingsRepo)
		if err != nil {
			return err
		}
		keep := make(map[int64]bool, len(entries))
		for _, e := range entries {
			keep[e.ID] = true
		}
		for _, e := range existing {
			if !keep[e.ID] {
				changes.Deletes = append(changes.Deletes, e.ID)
			}
		}
	}

	if err := database.SaveChanges(ctx, entryRepo, settingsRepo, changes); err != nil {
		return err
	}
	slog.Info("Catalog imported", "entries", len(entries), "deleted", len(changes.Deletes))
	return nil
}
