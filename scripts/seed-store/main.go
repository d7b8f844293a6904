package main

import (
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/goliatone/go-partial/pkg/store"
)

func main() {
	var (
		templatesDir = flag.String("templates", "examples/fixtures/templates", "template directory to import")
		dbPath       = flag.String("db", "templates.db", "SQLite database path")
		ext          = flag.String("ext", ".tmpl", "template extension to import")
	)
	flag.Parse()

	st, err := store.NewSQLiteStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open store: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	root := os.DirFS(*templatesDir)
	count := 0
	err = fs.WalkDir(root, ".", func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !strings.HasSuffix(path, *ext) {
			return nil
		}
		source, err := fs.ReadFile(root, path)
		if err != nil {
			return err
		}
		if err := st.Put(path, source); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to import templates: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Imported %d templates from %s into %s\n", count, *templatesDir, *dbPath)
}
