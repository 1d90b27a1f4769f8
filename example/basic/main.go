package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/siherrmann/codegraph"
	"github.com/siherrmann/codegraph/core/pipeline"
	"github.com/siherrmann/codegraph/core/scanner"
	"github.com/siherrmann/codegraph/helper"
	"github.com/siherrmann/codegraph/model"
)

var sampleFiles = map[string]string{
	"shop/cart.py": `from shop.pricing import apply_discount


class Cart:
    def __init__(self):
        self.items = []

    def add(self, item, price):
        self.items.append((item, price))

    def total(self):
        return apply_discount(sum(p for _, p in self.items))
`,
	"shop/pricing.py": `DISCOUNT = 0.1


def apply_discount(amount):
    return round(amount * (1 - DISCOUNT), 2)
`,
	"web/checkout.js": `import { formatPrice } from "./format";

export function checkout(cart) {
  return formatPrice(cart.total());
}
`,
}

func main() {
	// Start a test PostgreSQL container
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

	dbConfig := &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		Database: "database",
		Username: "user",
		Password: "password",
		Schema:   "public",
		SSLMode:  "disable",
	}

	root, err := os.MkdirTemp("", "codegraph-example-")
	if err != nil {
		log.Fatalf("Failed to create project directory: %v", err)
	}
	defer os.RemoveAll(root)

	for name, content := range sampleFiles {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			log.Fatalf("Failed to create %s: %v", name, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			log.Fatalf("Failed to write %s: %v", name, err)
		}
	}

	config := helper.DefaultConfiguration()
	config.EmbeddingsPath = filepath.Join(root, "embeddings.db")

	cg, err := codegraph.NewCodeGraph(dbConfig, config)
	if err != nil {
		log.Fatalf("Failed to create codegraph: %v", err)
	}
	defer cg.Close()

	ctx := context.Background()

	fmt.Println("Analyzing project...")
	report, err := cg.AnalyzeDirectory(ctx, root, scanner.Config{}, false)
	if err != nil {
		log.Fatalf("Failed to analyze project: %v", err)
	}
	fmt.Printf("Analyzed %d files: %d entities, %d relationships\n", report.Files, report.Entities, report.Relationships)

	summary, err := cg.Summary(ctx)
	if err != nil {
		log.Fatalf("Failed to summarize graph: %v", err)
	}
	for entityType, count := range summary.NodesByType {
		fmt.Printf("  %-20s %d\n", entityType, count)
	}

	// Embeds every node with all-MiniLM-L6-v2 (384 dimensions)
	if err := cg.UseDefaultEncoder(); err != nil {
		log.Fatalf("Failed to set up encoder: %v", err)
	}
	run, err := cg.RunEmbeddingPipeline(ctx, pipeline.ProgressFunc(func(event model.ProgressEvent) {
		fmt.Printf("  [%s] %5.1f%% %s\n", event.State, event.Percent, event.Message)
	}))
	if err != nil {
		log.Fatalf("Failed to embed graph: %v", err)
	}
	fmt.Printf("Embedded %d nodes\n", run.Embedded)

	queryText := "where is the discount applied?"
	fmt.Printf("\nQuerying: %s\n", queryText)

	bundles, err := cg.SearchWithContext(ctx, queryText, &model.SearchConfig{TopK: 3})
	if err != nil {
		log.Fatalf("Failed to search: %v", err)
	}

	for i, bundle := range bundles {
		fmt.Printf("\nResult %d: %s %s\n", i+1, bundle.Type, bundle.Name)
		if bundle.FilePath != nil {
			fmt.Printf("File: %s\n", *bundle.FilePath)
		}
		for _, rel := range bundle.Relations {
			fmt.Printf("  %s %s (%s)\n", rel.RelType, rel.TargetNodeName, rel.TargetNodeType)
		}
		fmt.Println(bundle.CodeSnippet)
	}
}
