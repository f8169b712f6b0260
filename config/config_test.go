package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/oapi/bridge"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
[server]
prog-id = "CSI.SAP2000.API.SapObject"
attach = true
root = "SapModel"

[bridge]
dir = "native"
x64 = "b64.dll"
x86 = "b32.dll"
entry = "Init"

[operations]
table = "ops.toml"

[journal]
enabled = true
path = "/var/lib/oapi/journal.db"

[remote]
listen = ":9000"
url = "http://winbox:9000"
grpc = true

[log]
verbosity = 2
file = "oapi.log"
`)

	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if c.Server.ProgID != "CSI.SAP2000.API.SapObject" || !c.Server.Attach || c.Server.Root != "SapModel" {
		t.Errorf("server = %+v", c.Server)
	}
	if c.Bridge.Dir != "native" || c.Bridge.X64 != "b64.dll" || c.Bridge.X86 != "b32.dll" || c.Bridge.Entry != "Init" {
		t.Errorf("bridge = %+v", c.Bridge)
	}
	if got := c.Path(c.Operations.Table); got != filepath.Join(c.Dir, "ops.toml") {
		t.Errorf("table path = %q", got)
	}
	if !c.Journal.Enabled || c.JournalPath() != "/var/lib/oapi/journal.db" {
		t.Errorf("journal = %+v, path %q", c.Journal, c.JournalPath())
	}
	if c.Remote.Listen != ":9000" || c.Remote.URL != "http://winbox:9000" || !c.Remote.GRPC {
		t.Errorf("remote = %+v", c.Remote)
	}
	if c.Log.Verbosity != 2 || c.Log.File != "oapi.log" {
		t.Errorf("log = %+v", c.Log)
	}

	opts := c.ServerOptions()
	if opts.ProgID != c.Server.ProgID || !opts.Attach || opts.Root != "SapModel" {
		t.Errorf("ServerOptions = %+v", opts)
	}

	// An explicitly configured bridge directory is used even if missing,
	// so bootstrap reports the missing library.
	ho := c.HandleOptions()
	if ho.Artifacts.FS == nil || ho.Artifacts.Names[bridge.Arch64] != "b64.dll" {
		t.Errorf("HandleOptions artifacts = %+v", ho.Artifacts)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
[server]
prog-id = "Test.Server"
`)

	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Bridge.Dir != "bridge" || c.Bridge.X64 != "oapi-bridge-x64.dll" || c.Bridge.X86 != "oapi-bridge-x86.dll" {
		t.Errorf("bridge defaults = %+v", c.Bridge)
	}
	if c.JournalPath() != filepath.Join(c.Dir, ".oapi", "journal.db") {
		t.Errorf("journal path = %q", c.JournalPath())
	}
	if c.Remote.Listen != "localhost:7780" {
		t.Errorf("listen = %q", c.Remote.Listen)
	}
	if c.Journal.Enabled {
		t.Error("journal enabled by default")
	}

	// The default bridge directory does not exist: connect directly.
	if ho := c.HandleOptions(); ho.Artifacts.FS != nil {
		t.Error("missing default bridge directory produced artifacts")
	}
	if err := os.Mkdir(filepath.Join(dir, "bridge"), 0755); err != nil {
		t.Fatal(err)
	}
	if ho := c.HandleOptions(); ho.Artifacts.FS == nil {
		t.Error("existing default bridge directory ignored")
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
[server]
progid = "Typo.Server"
`)
	_, err := Load(dir)
	if err == nil || !strings.Contains(err.Error(), "progid") {
		t.Errorf("Load error = %v, want unknown key", err)
	}
}

func TestFindAndLoad(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, `
[server]
prog-id = "Found.Server"
`)
	sub := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}

	c, err := FindAndLoad(sub)
	if err != nil {
		t.Fatalf("FindAndLoad: %v", err)
	}
	if c.Server.ProgID != "Found.Server" {
		t.Errorf("prog-id = %q", c.Server.ProgID)
	}
	abs, _ := filepath.Abs(root)
	if c.Dir != abs {
		t.Errorf("Dir = %q, want %q", c.Dir, abs)
	}
}

func TestFindAndLoadFallsBackToDefault(t *testing.T) {
	dir := t.TempDir()
	c, err := FindAndLoad(dir)
	if err != nil {
		t.Fatalf("FindAndLoad: %v", err)
	}
	if c.Server.ProgID != "" || c.Remote.Listen == "" {
		t.Errorf("default config = %+v", c)
	}
}
