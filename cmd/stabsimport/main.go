// stabsimport reconstructs compiler debug information from a MIPS ELF
// binary into an in-memory program database and dumps the result as JSON,
// optionally exporting it into a Neo4j graph.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/jtang613/gostabs/pkg/stabs"
	"github.com/jtang613/gostabs/pkg/stabs/database"
	"github.com/jtang613/gostabs/pkg/stabs/graph"
	"github.com/jtang613/gostabs/pkg/stabs/importer"
	"github.com/jtang613/gostabs/pkg/stabs/stdump"
)

func main() {
	// Flags
	showTypes := flag.Bool("types", false, "Output reconstructed data types")
	showFunctions := flag.Bool("functions", false, "Output reconstructed functions")
	showGlobals := flag.Bool("globals", false, "Output reconstructed global variables")
	showAll := flag.Bool("all", false, "Output everything")
	prettyPrint := flag.Bool("pretty", false, "Pretty-print JSON output")
	jsonPath := flag.String("json", "", "Use a pre-built stdump JSON document instead of running stdump")
	configPath := flag.String("config", "", "Path to a stabsimport TOML configuration file")
	noInline := flag.Bool("no-inline", false, "Do not mark inlined code sections")
	noLines := flag.Bool("no-lines", false, "Do not emit source line comments")
	exportGraph := flag.Bool("neo4j", false, "Export the result into Neo4j")
	cleanGraph := flag.Bool("clean", false, "Clean existing graph data before exporting")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <elf-file>\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -functions -pretty game.elf\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -all game.elf\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -json dump.json -all game.elf\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -all -neo4j -clean game.elf\n", os.Args[0])
	}

	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}
	binaryPath := flag.Arg(0)

	_ = godotenv.Load()
	cfg, err := loadConfig(*configPath)
	if err != nil {
		printErrorMessage("Config Error", err)
		os.Exit(1)
	}

	cfg.Options.OverrideBinaryPath = binaryPath
	cfg.Options.OverrideJSONPath = *jsonPath
	if *noInline {
		cfg.Options.MarkInlinedCode = false
	}
	if *noLines {
		cfg.Options.OutputLineNumbers = false
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	prog := database.NewProgram()
	log := importer.NewMessageLog()
	log.SetEcho(os.Stderr)

	im := importer.New(prog, cfg.Options, log)
	im.Runner = stdump.NewCommandRunner(cfg.ToolPath)

	summary, err := im.Run(ctx)
	if err != nil {
		printErrorMessage("Import Error", err)
		os.Exit(1)
	}
	printInfoMessage("Done", fmt.Sprintf("%d types, %d functions, %d globals imported",
		summary.Types, summary.Functions, summary.Globals))
	if log.Len() > 0 {
		printWarningMessage("Diagnostics", fmt.Sprintf("%d messages logged", log.Len()))
	}

	report := stabs.CollectReport(prog)

	if *exportGraph {
		if err := exportToNeo4j(ctx, cfg, report, *cleanGraph); err != nil {
			printErrorMessage("Neo4j Error", err)
			os.Exit(1)
		}
		printInfoMessage("Neo4j", "graph export complete")
	}

	// Default to showing everything if no category flags were given.
	if !*showTypes && !*showFunctions && !*showGlobals && !*showAll {
		*showAll = true
	}

	result := make(map[string]interface{})
	if *showTypes || *showAll {
		result["types"] = report.Types
	}
	if *showFunctions || *showAll {
		result["functions"] = report.Functions
	}
	if *showGlobals || *showAll {
		result["globals"] = report.Globals
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetEscapeHTML(false) // Don't escape &, <, > as \u0026, \u003c, \u003e
	if *prettyPrint {
		encoder.SetIndent("", "  ")
	}
	if err := encoder.Encode(result); err != nil {
		printErrorMessage("Output Error", err)
		os.Exit(1)
	}
}

func exportToNeo4j(ctx context.Context, cfg *config, report *stabs.Report, clean bool) error {
	if cfg.Neo4jURI == "" || cfg.Neo4jPass == "" {
		return fmt.Errorf("NEO4J_URI and NEO4J_PASS must be set for graph export")
	}
	loader, err := graph.NewLoader(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPass)
	if err != nil {
		return err
	}
	defer loader.Close()

	if clean {
		if err := loader.CleanGraph(); err != nil {
			return err
		}
	}
	if err := loader.CreateIndexes(); err != nil {
		return err
	}
	return loader.LoadReport(report)
}
