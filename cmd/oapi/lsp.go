package main

import (
	"flag"

	"github.com/chazu/oapi/lsp"
	"github.com/chazu/oapi/optable"
)

// runLSP processes the `oapi lsp` subcommand. The server speaks LSP on
// stdio; logs go to stderr or the configured log file.
func runLSP(args []string) error {
	fs := flag.NewFlagSet("lsp", flag.ExitOnError)
	g := addGlobalFlags(fs)
	tablePath := fs.String("table", "", "Operation table file")
	pkg := fs.String("package", "", "Go package declaring the operations")
	fs.Parse(args)

	cfg, err := g.setup()
	if err != nil {
		return err
	}
	table, err := loadTable(cfg, *tablePath, *pkg)
	if err != nil {
		return err
	}
	if table == nil {
		log.Warning("no operation table configured; completion is disabled")
		table = optable.New()
	}

	source := *tablePath
	if source == "" && *pkg == "" && cfg.Operations.Table != "" {
		source = cfg.Path(cfg.Operations.Table)
	}
	return lsp.New(table, source).Run()
}
