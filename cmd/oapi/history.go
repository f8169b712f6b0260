package main

import (
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"
)

// runHistory processes the `oapi history` subcommand.
func runHistory(args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	g := addGlobalFlags(fs)
	n := fs.Int("n", 20, "Number of entries to show")
	stats := fs.Bool("stats", false, "Show per-method totals instead")
	fs.Parse(args)

	cfg, err := g.setup()
	if err != nil {
		return err
	}
	j, _, err := openJournal(cfg, true)
	if err != nil {
		return err
	}
	defer j.Close()

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer tw.Flush()

	if *stats {
		rows, err := j.Stats()
		if err != nil {
			return err
		}
		fmt.Fprintln(tw, "METHOD\tCALLS\tFAILED\tERRORS")
		for _, s := range rows {
			fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", s.Method, s.Calls, s.Failures, s.Errors)
		}
		return nil
	}

	entries, err := j.Recent(*n)
	if err != nil {
		return err
	}
	fmt.Fprintln(tw, "TIME\tMETHOD\tARGS\tCODE\tELAPSED\tERROR")
	for _, e := range entries {
		errText := ""
		if e.Err != nil {
			errText = e.Err.Error()
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n",
			e.At.Format(time.DateTime), e.Method, e.Args, int32(e.Code), e.Elapsed, errText)
	}
	return nil
}
