package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	partial "github.com/goliatone/go-partial"
)

func main() {
	name := flag.String("name", "", "partial reference to render")
	templates := flag.String("templates", "templates", "template directory")
	locations := flag.String("locations", ".", "comma-separated search locations inside the template directory")
	ext := flag.String("ext", ".tmpl", "template extension")
	dataFile := flag.String("data", "", "YAML file supplying the model and view-data")
	output := flag.String("output", "", "output file (stdout if empty)")
	sanitize := flag.Bool("sanitize", false, "run the rendered markup through the HTML sanitizer")
	flag.Parse()

	if strings.TrimSpace(*name) == "" {
		log.Fatal("missing -name: which partial should be rendered?")
	}

	ctx := context.Background()

	engine, err := partial.NewEngineFromDir(*templates)
	if err != nil {
		log.Fatalf("Failed to load templates: %v", err)
	}

	model, viewData, err := loadData(*dataFile)
	if err != nil {
		log.Fatalf("Failed to read data file: %v", err)
	}

	orch := partial.NewOrchestrator(
		partial.WithEngine(engine),
		partial.WithLocations(splitLocations(*locations)...),
		partial.WithExtension(*ext),
	)

	req := partial.Request{
		Name:     *name,
		Ambient:  partial.NewContext(partial.WithData(viewData)),
		Sanitize: *sanitize,
	}
	if model != nil {
		req.Model = &partial.Expression{Value: model}
	}

	result, err := orch.Render(ctx, req)
	if err != nil {
		log.Fatalf("Failed to render partial: %v", err)
	}

	if *output != "" {
		if err := os.WriteFile(*output, result.Content, 0o644); err != nil {
			log.Fatalf("Failed to write output: %v", err)
		}
		fmt.Printf("Partial written to %s\n", *output)
	} else {
		fmt.Println(string(result.Content))
	}
}

// loadData reads the YAML data file. A document with a top-level "model" or
// "data" key splits into the model expression and ambient view-data; any
// other document becomes the model wholesale.
func loadData(path string) (any, map[string]any, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, nil, err
	}

	mapping, ok := doc.(map[string]any)
	if !ok {
		return doc, nil, nil
	}
	model, hasModel := mapping["model"]
	viewData, _ := mapping["data"].(map[string]any)
	if hasModel || viewData != nil {
		return model, viewData, nil
	}
	return mapping, nil, nil
}

func splitLocations(raw string) []string {
	parts := strings.Split(raw, ",")
	locations := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		locations = append(locations, part)
	}
	return locations
}
