package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chazu/oapi/cassette"
	"github.com/chazu/oapi/invoke"
	"github.com/chazu/oapi/native"
	"github.com/chazu/oapi/optable"
)

// runCall processes the `oapi call` subcommand.
// Usage:
//
//	oapi call METHOD [ARG...]                 # self-describing arguments
//	oapi call -table ops.toml METHOD [VALUE...]
//	oapi call -record calls.cbor METHOD ...   # record to a cassette
//	oapi call -cassette calls.cbor METHOD ... # replay instead of a server
func runCall(args []string) error {
	fs := flag.NewFlagSet("call", flag.ExitOnError)
	g := addGlobalFlags(fs)
	tablePath := fs.String("table", "", "Operation table file")
	pkg := fs.String("package", "", "Go package declaring the operations")
	remoteURL := fs.String("remote", "", "Base URL of an 'oapi serve' instance")
	record := fs.String("record", "", "Append the call to this cassette")
	play := fs.String("cassette", "", "Answer from this cassette instead of a server")
	skip := fs.String("skip", "", "Comma-separated optional outputs not to request")
	useJournal := fs.Bool("journal", false, "Record the call in the journal")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: oapi call [options] METHOD [ARG...]\n\n")
		fmt.Fprintf(os.Stderr, "Without an operation table each ARG describes itself:\n")
		fmt.Fprintf(os.Stderr, "  int:5 double:2.5 bool:true string:F1 []double:1,2   by value\n")
		fmt.Fprintf(os.Stderr, "  &int &[]string &double=2.5                          by reference\n")
		fmt.Fprintf(os.Stderr, "  _int _[]string                                      not needed\n")
		fmt.Fprintf(os.Stderr, "With a table only input values are given; outputs are printed.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}
	fs.Parse(args)
	if fs.NArg() < 1 {
		fs.Usage()
		os.Exit(2)
	}

	cfg, err := g.setup()
	if err != nil {
		return err
	}
	table, err := loadTable(cfg, *tablePath, *pkg)
	if err != nil {
		return err
	}

	method, rest := fs.Arg(0), fs.Args()[1:]
	var (
		callArgs []any
		outs     []output
	)
	var op *optable.Op
	if table != nil {
		op = table.Lookup(method)
	}
	if op != nil {
		callArgs, outs, err = argsFromTable(op, rest, splitSet(*skip))
	} else {
		if table != nil {
			log.Warningf("%s is not in the operation table; arguments are not checked", method)
		}
		callArgs, outs, err = argsFromSyntax(rest)
	}
	if err != nil {
		return err
	}

	var dispatcher native.Dispatcher
	if *play != "" {
		p, err := loadPlayer(*play)
		if err != nil {
			return err
		}
		dispatcher = p
	} else {
		url := *remoteURL
		if url == "" {
			url = cfg.Remote.URL
		}
		t := openTarget(cfg, url)
		defer t.close()
		dispatcher = t
	}

	if *record != "" {
		f, err := os.OpenFile(*record, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("opening cassette: %w", err)
		}
		defer f.Close()
		dispatcher = cassette.NewRecorder(dispatcher, f)
	}

	j, opts, err := openJournal(cfg, *useJournal)
	if err != nil {
		return err
	}
	if j != nil {
		defer j.Close()
	}
	if op != nil {
		opts = append(opts, invoke.WithTable(table))
	}
	inv := invoke.New(dispatcher, opts...)

	var code native.Code
	if inv.Table() != nil {
		code, err = inv.Call(method, callArgs...)
	} else {
		code, err = inv.Invoke(method, callArgs...)
	}
	printResult(os.Stdout, method, code, outs)
	if err != nil {
		return err
	}
	if !code.OK() {
		return exitError(1)
	}
	return nil
}

func printResult(w io.Writer, method string, code native.Code, outs []output) {
	fmt.Fprintf(w, "%s: %d\n", method, int32(code))
	for _, o := range outs {
		fmt.Fprintf(w, "  %s = %v\n", o.name, o.param)
	}
}

func loadPlayer(path string) (*cassette.Player, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening cassette: %w", err)
	}
	defer f.Close()
	recs, err := cassette.Load(f)
	if err != nil {
		return nil, err
	}
	return cassette.NewPlayer(recs), nil
}

func splitSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, name := range strings.Split(s, ",") {
		if name = strings.TrimSpace(name); name != "" {
			set[name] = true
		}
	}
	return set
}
