package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chazu/oapi/optable"
	"github.com/chazu/oapi/optable/gen"
)

var errNoTable = errors.New("no operation table: pass -table or -package, or set [operations] in oapi.toml")

// runOps processes the `oapi ops` subcommand.
// Usage:
//
//	oapi ops                              # list operations
//	oapi ops -package ./sapapi -o ops.toml  # export an introspected table
func runOps(args []string) error {
	fs := flag.NewFlagSet("ops", flag.ExitOnError)
	g := addGlobalFlags(fs)
	tablePath := fs.String("table", "", "Operation table file")
	pkg := fs.String("package", "", "Go package declaring the operations")
	output := fs.String("o", "", "Write the table as TOML to this file")
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
		return errNoTable
	}

	if *output != "" {
		data, err := optable.Encode(table)
		if err != nil {
			return err
		}
		if err := os.WriteFile(*output, data, 0644); err != nil {
			return err
		}
		fmt.Printf("Wrote %d operations to %s\n", table.Len(), *output)
		return nil
	}

	for _, op := range table.Ops() {
		fmt.Println(op)
	}
	return nil
}

// runGen processes the `oapi gen` subcommand.
// Usage:
//
//	oapi gen -pkg sap -o sap/client.go
func runGen(args []string) error {
	fs := flag.NewFlagSet("gen", flag.ExitOnError)
	g := addGlobalFlags(fs)
	tablePath := fs.String("table", "", "Operation table file")
	pkg := fs.String("package", "", "Go package declaring the operations")
	pkgName := fs.String("pkg", "", "Package name of the generated file (default: output directory name)")
	output := fs.String("o", "", "Output file (default: stdout)")
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
		return errNoTable
	}

	name := *pkgName
	if name == "" {
		if *output == "" {
			return errors.New("-pkg is required when writing to stdout")
		}
		abs, err := filepath.Abs(*output)
		if err != nil {
			return err
		}
		name = filepath.Base(filepath.Dir(abs))
	}

	src, err := gen.Generate(table, name)
	if err != nil {
		return err
	}
	if *output == "" {
		_, err = os.Stdout.Write(src)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(*output), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(*output, src, 0644); err != nil {
		return err
	}
	fmt.Printf("Generated %d wrappers in %s\n", table.Len(), *output)
	return nil
}
