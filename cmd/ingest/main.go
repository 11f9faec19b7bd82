package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/lisongmechlab/lsml-sub002/internal/catalog"
	"github.com/lisongmechlab/lsml-sub002/internal/config"
	"github.com/lisongmechlab/lsml-sub002/internal/db"
	"github.com/lisongmechlab/lsml-sub002/internal/events"
	"github.com/lisongmechlab/lsml-sub002/internal/ingestion"
)

func main() {
	dir := pflag.String("dir", ".", "Path to a directory of .mtf files")
	catalogPath := pflag.String("catalog", "", "SQLite catalog written by seed-catalog (default: embedded catalog)")
	dsn := pflag.String("db", "", "Postgres connection string; imported loadouts are saved when set")
	verbose := pflag.BoolP("verbose", "v", false, "Print every import, not only the failing ones")
	pflag.Parse()

	ctx := context.Background()

	var cat catalog.Catalog
	var err error
	if *catalogPath == "" {
		cat, err = catalog.Builtin()
	} else {
		cat, err = loadSQLiteCatalog(ctx, *catalogPath)
	}
	if err != nil {
		config.Exitf("Catalog error: %v", err)
	}

	files, err := mtfFiles(*dir)
	if err != nil {
		config.Exitf("Error walking directory: %v", err)
	}
	fmt.Printf("Found %d .mtf files\n", len(files))

	var store *db.LoadoutStore
	if *dsn != "" {
		pool, err := db.ConnectPostgres(ctx, *dsn)
		if err != nil {
			config.Exitf("DB connect error: %v", err)
		}
		defer pool.Close()
		store = db.NewLoadoutStore(pool)
		fmt.Println("Connected to database")
	}

	var clean, partial, failed, saved int
	var problems []string
	for i, f := range files {
		name := filepath.Base(f)
		data, err := ingestion.ParseMTFFile(f)
		if err != nil {
			failed++
			problems = append(problems, fmt.Sprintf("  %s: %v", name, err))
			continue
		}
		im, err := ingestion.ToLoadout(cat, data, events.Discard)
		if err != nil {
			failed++
			problems = append(problems, fmt.Sprintf("  %s: %v", name, err))
			continue
		}

		if im.OK() {
			clean++
		} else {
			partial++
			problems = append(problems, describe(name, im))
		}
		if *verbose {
			fmt.Printf("  %-40s %3dt  %6.2ft used  armor %d\n", data.FullName(), data.Mass, im.Loadout.Mass(), im.Loadout.ArmorPoints())
		}

		if store != nil {
			id := uuid.NewSHA1(uuid.NameSpaceURL, []byte("mtf:"+data.FullName()))
			if err := store.Save(ctx, id, im.Loadout.Snapshot()); err != nil {
				problems = append(problems, fmt.Sprintf("  %s: save: %v", name, err))
			} else {
				saved++
			}
		}

		if (i+1)%500 == 0 {
			fmt.Printf("  Progress: %d / %d files processed\n", i+1, len(files))
		}
	}

	fmt.Printf("\nResults:\n")
	fmt.Printf("  Clean:    %d / %d\n", clean, len(files))
	fmt.Printf("  Partial:  %d\n", partial)
	fmt.Printf("  Failed:   %d\n", failed)
	if store != nil {
		fmt.Printf("  Saved:    %d\n", saved)
	}

	if len(problems) > 0 {
		fmt.Printf("\nFirst %d problems:\n", min(len(problems), 20))
		for _, p := range problems[:min(len(problems), 20)] {
			fmt.Println(p)
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func mtfFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(strings.ToLower(d.Name()), ".mtf") {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func describe(name string, im *ingestion.Import) string {
	var parts []string
	if len(im.Unknown) > 0 {
		parts = append(parts, "unknown "+strings.Join(im.Unknown, ", "))
	}
	for _, r := range im.Rejected {
		parts = append(parts, fmt.Sprintf("%s in %s: %s", r.Item, r.Location, r.Reason))
	}
	return fmt.Sprintf("  %s: %s", name, strings.Join(parts, "; "))
}

func loadSQLiteCatalog(ctx context.Context, path string) (catalog.Catalog, error) {
	sqlDB, err := db.ConnectSQLite(path)
	if err != nil {
		return nil, err
	}
	defer sqlDB.Close()
	return db.NewCatalogStore(sqlDB).LoadCatalog(ctx)
}
