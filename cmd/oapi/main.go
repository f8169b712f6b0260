// oapi - command line access to an Automation server
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"connectrpc.com/connect"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/oapi/bridge"
	"github.com/chazu/oapi/config"
	"github.com/chazu/oapi/invoke"
	"github.com/chazu/oapi/journal"
	"github.com/chazu/oapi/native"
	"github.com/chazu/oapi/optable"
	"github.com/chazu/oapi/remote"
)

var log = commonlog.GetLogger("oapi")

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: oapi <command> [options] [args...]\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  call     Invoke a server method and print its outputs\n")
	fmt.Fprintf(os.Stderr, "  ops      List or export the operation table\n")
	fmt.Fprintf(os.Stderr, "  gen      Generate typed Go wrappers from the operation table\n")
	fmt.Fprintf(os.Stderr, "  serve    Expose the server object over HTTP (Connect/gRPC)\n")
	fmt.Fprintf(os.Stderr, "  replay   Show or re-run a recorded cassette\n")
	fmt.Fprintf(os.Stderr, "  history  Show the invocation journal\n")
	fmt.Fprintf(os.Stderr, "  lsp      Start a language server for operation names\n")
	fmt.Fprintf(os.Stderr, "\nRun 'oapi <command> -h' for command options.\n")
	fmt.Fprintf(os.Stderr, "\nExamples:\n")
	fmt.Fprintf(os.Stderr, "  oapi call PropFrame.GetNameList &int &[]string\n")
	fmt.Fprintf(os.Stderr, "  oapi call -table ops.toml FrameObj.GetPoints F1\n")
	fmt.Fprintf(os.Stderr, "  oapi gen -package ./sapapi -pkg sap -o sap/client.go\n")
	fmt.Fprintf(os.Stderr, "  oapi serve -listen :7780\n")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "call":
		err = runCall(args)
	case "ops":
		err = runOps(args)
	case "gen":
		err = runGen(args)
	case "serve":
		err = runServe(args)
	case "replay":
		err = runReplay(args)
	case "history":
		err = runHistory(args)
	case "lsp":
		err = runLSP(args)
	case "help", "-h", "--help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(2)
	}
	if err != nil {
		var status exitError
		if errors.As(err, &status) {
			os.Exit(int(status))
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// exitError is the exit status of a command that has already reported its
// outcome. Commands return it instead of calling os.Exit so that their
// deferred cleanup runs first.
type exitError int

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", int(e)) }

// globalFlags are accepted by every command.
type globalFlags struct {
	dir       string
	verbosity int
}

func addGlobalFlags(fs *flag.FlagSet) *globalFlags {
	g := &globalFlags{}
	fs.StringVar(&g.dir, "C", ".", "Directory to search for oapi.toml from")
	fs.IntVar(&g.verbosity, "v", 0, "Additional log verbosity")
	return g
}

// setup loads the configuration and configures logging.
func (g *globalFlags) setup() (*config.Config, error) {
	cfg, err := config.FindAndLoad(g.dir)
	if err != nil {
		return nil, err
	}
	var path *string
	if cfg.Log.File != "" {
		p := cfg.Path(cfg.Log.File)
		path = &p
	}
	commonlog.Configure(cfg.Log.Verbosity+g.verbosity, path)
	return cfg, nil
}

// loadTable returns the operation table named by the flags or, failing
// that, by the configuration. It returns nil when none is configured.
func loadTable(cfg *config.Config, tablePath, pkg string) (*optable.Table, error) {
	switch {
	case tablePath != "":
		return optable.LoadFile(tablePath)
	case pkg != "":
		return optable.Introspect("", pkg)
	case cfg.Operations.Table != "":
		return optable.LoadFile(cfg.Path(cfg.Operations.Table))
	case cfg.Operations.Package != "":
		return optable.Introspect(cfg.Dir, cfg.Operations.Package)
	}
	return nil, nil
}

// target is the dispatcher commands talk to and its cleanup.
type target struct {
	native.Dispatcher
	close func()
}

// openTarget connects to a remote server when url is set, and otherwise
// bootstraps the local handle. A failed bootstrap is logged and the handle
// stays degraded: every call then fails with a result code.
func openTarget(cfg *config.Config, url string) *target {
	if url != "" {
		var opts []connect.ClientOption
		if cfg.Remote.GRPC {
			opts = append(opts, connect.WithGRPC())
		}
		log.Infof("using remote server %s", url)
		return &target{Dispatcher: remote.NewClient(http.DefaultClient, url, opts...), close: func() {}}
	}

	h := bridge.Open(cfg.HandleOptions())
	if err := h.EnsureLoaded(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	closeOnSignal(h)
	return &target{Dispatcher: h, close: func() {
		if err := h.Close(); err != nil {
			log.Warningf("closing handle: %s", err)
		}
	}}
}

// closeOnSignal releases the handle and removes the installed bridge
// library when the process is interrupted.
func closeOnSignal(h *bridge.Handle) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ch
		h.Close()
		os.Exit(130)
	}()
}

// openJournal opens the journal when enabled by flag or configuration.
func openJournal(cfg *config.Config, enabled bool) (*journal.Journal, []invoke.Option, error) {
	if !enabled && !cfg.Journal.Enabled {
		return nil, nil, nil
	}
	j, err := journal.Open(cfg.JournalPath())
	if err != nil {
		return nil, nil, err
	}
	return j, []invoke.Option{invoke.WithJournal(j)}, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
