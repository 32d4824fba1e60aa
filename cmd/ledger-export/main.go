// Command ledger-export writes the asset history ledger to the configured
// archive as one CSV object and prints the resulting object key.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"assetledger/internal/app"
	"assetledger/internal/config"
	"assetledger/internal/platform/logger"
)

var exitFunc = os.Exit

func main() {
	exitFunc(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("ledger-export", flag.ContinueOnError)
	fs.SetOutput(stderr)
	list := fs.Bool("list", false, "list existing exports instead of writing a new one")
	asJSON := fs.Bool("json", false, "print JSON instead of plain keys")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(stderr, "config:", err)
		return 1
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, "ledger-export")
	if err != nil {
		fmt.Fprintln(stderr, "logger:", err)
		return 1
	}
	defer log.Sync()

	ctx := context.Background()
	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		fmt.Fprintln(stderr, "build:", err)
		return 1
	}
	defer func() { _ = a.Close() }()

	if *list {
		infos, err := a.Exporter.List(ctx)
		if err != nil {
			fmt.Fprintln(stderr, "list:", err)
			return 1
		}
		if *asJSON {
			return printJSON(stdout, stderr, infos)
		}
		for _, info := range infos {
			fmt.Fprintf(stdout, "%s\t%d\n", info.Key, info.Size)
		}
		return 0
	}

	export, err := a.Exporter.ExportHistory(ctx)
	if err != nil {
		fmt.Fprintln(stderr, "export:", err)
		return 1
	}
	log.Info("ledger exported", "key", export.Key, "rows", export.Rows)
	if *asJSON {
		return printJSON(stdout, stderr, export)
	}
	fmt.Fprintln(stdout, export.Key)
	return 0
}

func printJSON(stdout, stderr io.Writer, v any) int {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(stderr, "encode:", err)
		return 1
	}
	return 0
}
