package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"reflect"

	"github.com/chazu/oapi/cassette"
	"github.com/chazu/oapi/native"
	"github.com/chazu/oapi/wire"
)

// runReplay processes the `oapi replay` subcommand.
// Usage:
//
//	oapi replay calls.cbor         # print the recorded calls
//	oapi replay -live calls.cbor   # re-run them and report differences
func runReplay(args []string) error {
	fs := flag.NewFlagSet("replay", flag.ExitOnError)
	g := addGlobalFlags(fs)
	live := fs.Bool("live", false, "Re-run every call against the server and compare")
	remoteURL := fs.String("remote", "", "Base URL of an 'oapi serve' instance")
	fs.Parse(args)
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: oapi replay [options] CASSETTE")
		os.Exit(2)
	}

	cfg, err := g.setup()
	if err != nil {
		return err
	}
	f, err := os.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	recs, err := cassette.Load(f)
	f.Close()
	if err != nil {
		return err
	}

	if !*live {
		for i, rec := range recs {
			printRecord(os.Stdout, i, rec)
		}
		return nil
	}

	url := *remoteURL
	if url == "" {
		url = cfg.Remote.URL
	}
	t := openTarget(cfg, url)
	defer t.close()

	diffs := 0
	for i, rec := range recs {
		if d := rerun(t, rec); d != "" {
			diffs++
			fmt.Printf("#%d %s: %s\n", i, rec.Method, d)
		}
	}
	fmt.Printf("%d calls, %d differ\n", len(recs), diffs)
	if diffs > 0 {
		return exitError(1)
	}
	return nil
}

func printRecord(w io.Writer, i int, rec cassette.Record) {
	if rec.Err != "" {
		fmt.Fprintf(w, "#%d %s: error: %s\n", i, rec.Method, rec.Err)
		return
	}
	fmt.Fprintf(w, "#%d %s: %d\n", i, rec.Method, int32(rec.Code))
	for j, s := range rec.In {
		switch s.Mode {
		case native.ByVal:
			fmt.Fprintf(w, "  in  %d %s = %v\n", j, s, s.Value)
		case native.ByRef:
			v, _ := native.Coerce(s.Kind, s.Array, rec.Out[j].Value)
			fmt.Fprintf(w, "  out %d %s = %v\n", j, s, v)
		}
	}
}

// rerun dispatches a recorded call and describes how the result differs
// from the recording, or returns "".
func rerun(d native.Dispatcher, rec cassette.Record) string {
	slots := wire.Clone(rec.In)
	code, err := d.Dispatch(rec.Method, slots)
	switch {
	case err != nil && rec.Err == "":
		return "now fails: " + err.Error()
	case err == nil && rec.Err != "":
		return "now succeeds, recorded error: " + rec.Err
	case err != nil:
		return ""
	case code != rec.Code:
		return fmt.Sprintf("code %d, recorded %d", int32(code), int32(rec.Code))
	}
	for i, s := range slots {
		if s.Mode != native.ByRef {
			continue
		}
		want, err := native.Coerce(s.Kind, s.Array, rec.Out[i].Value)
		if err != nil {
			return fmt.Sprintf("output %d: %v", i, err)
		}
		if !reflect.DeepEqual(s.Value, want) {
			return fmt.Sprintf("output %d is %v, recorded %v", i, s.Value, want)
		}
	}
	return ""
}
