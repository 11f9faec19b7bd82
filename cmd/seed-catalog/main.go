package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/lisongmechlab/lsml-sub002/internal/catalog"
	"github.com/lisongmechlab/lsml-sub002/internal/config"
	"github.com/lisongmechlab/lsml-sub002/internal/db"
)

func main() {
	out := pflag.StringP("out", "o", "catalog.db", "SQLite file to write")
	from := pflag.String("from", "", "YAML catalog to import (default: embedded catalog)")
	pflag.Parse()

	doc, err := readDocument(*from)
	if err != nil {
		config.Exitf("Read catalog: %v", err)
	}
	// Resolving first rejects dangling references before anything is written.
	if _, err := catalog.NewMemory(doc); err != nil {
		config.Exitf("Invalid catalog: %v", err)
	}

	sqlDB, err := db.OpenCatalogDB(*out)
	if err != nil {
		config.Exitf("Open %s: %v", *out, err)
	}
	defer sqlDB.Close()

	if err := db.NewCatalogStore(sqlDB).WriteDocument(context.Background(), doc); err != nil {
		config.Exitf("Write catalog: %v", err)
	}
	fmt.Printf("Wrote %d items, %d chassis, %d upgrades to %s\n", len(doc.Items), len(doc.Chassis), len(doc.Upgrades), *out)
}

func readDocument(path string) (*catalog.Document, error) {
	if path == "" {
		return catalog.BuiltinDocument()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return catalog.DecodeYAML(f)
}
