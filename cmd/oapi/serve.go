package main

import (
	"flag"

	"github.com/chazu/oapi/bridge"
	"github.com/chazu/oapi/remote"
)

// runServe processes the `oapi serve` subcommand: it bootstraps the local
// server object and exposes it to remote clients until interrupted.
func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	g := addGlobalFlags(fs)
	listen := fs.String("listen", "", "Listen address (default from oapi.toml)")
	fs.Parse(args)

	cfg, err := g.setup()
	if err != nil {
		return err
	}
	addr := *listen
	if addr == "" {
		addr = cfg.Remote.Listen
	}

	h := bridge.Open(cfg.HandleOptions())
	defer h.Close()
	// Serve even when degraded: clients then get failed_precondition.
	h.EnsureLoaded()

	ctx, cancel := signalContext()
	defer cancel()
	return remote.NewServer(h).ListenAndServe(ctx, addr)
}
