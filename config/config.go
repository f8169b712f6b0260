// Package config handles oapi.toml project configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/chazu/oapi/bridge"
	"github.com/chazu/oapi/native"
)

// FileName is the configuration file looked up by FindAndLoad.
const FileName = "oapi.toml"

// Config represents an oapi.toml configuration.
type Config struct {
	Server     Server     `toml:"server"`
	Bridge     Bridge     `toml:"bridge"`
	Operations Operations `toml:"operations"`
	Journal    Journal    `toml:"journal"`
	Remote     Remote     `toml:"remote"`
	Log        Log        `toml:"log"`

	// Dir is the directory containing the oapi.toml file (set at load time).
	Dir string `toml:"-"`

	bridgeDirSet bool
}

// Server selects the Automation server object.
type Server struct {
	ProgID string `toml:"prog-id"`
	Attach bool   `toml:"attach"`
	Root   string `toml:"root"`
}

// Bridge locates the native bridge libraries.
type Bridge struct {
	Dir     string `toml:"dir"`
	X64     string `toml:"x64"`
	X86     string `toml:"x86"`
	Entry   string `toml:"entry"`
	TempDir string `toml:"temp-dir"`
}

// Operations points at the operation table.
type Operations struct {
	// Table is a TOML table file.
	Table string `toml:"table"`
	// Package is a Go package pattern whose interfaces declare the
	// operations. Used when Table is empty.
	Package string `toml:"package"`
}

// Journal configures the invocation journal.
type Journal struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Remote configures the remote transport.
type Remote struct {
	Listen string `toml:"listen"`
	URL    string `toml:"url"`
	GRPC   bool   `toml:"grpc"`
}

// Log configures logging.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Default returns the configuration used when no oapi.toml exists.
func Default(dir string) *Config {
	c := &Config{Dir: dir}
	c.applyDefaults()
	return c
}

// Load parses the oapi.toml file in dir.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var c Config
	md, err := toml.Decode(string(data), &c)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %s", path, undecoded[0])
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	c.applyDefaults()
	return &c, nil
}

// FindAndLoad walks up from startDir to find an oapi.toml file, then loads
// it. Without one it returns Default for startDir.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for d := dir; ; {
		if _, err := os.Stat(filepath.Join(d, FileName)); err == nil {
			return Load(d)
		}
		parent := filepath.Dir(d)
		if parent == d {
			return Default(dir), nil
		}
		d = parent
	}
}

func (c *Config) applyDefaults() {
	c.bridgeDirSet = c.Bridge.Dir != ""
	if c.Bridge.Dir == "" {
		c.Bridge.Dir = "bridge"
	}
	if c.Bridge.X64 == "" {
		c.Bridge.X64 = "oapi-bridge-x64.dll"
	}
	if c.Bridge.X86 == "" {
		c.Bridge.X86 = "oapi-bridge-x86.dll"
	}
	if c.Journal.Path == "" {
		c.Journal.Path = filepath.Join(".oapi", "journal.db")
	}
	if c.Remote.Listen == "" {
		c.Remote.Listen = "localhost:7780"
	}
}

// Path resolves p relative to the configuration directory.
func (c *Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// ServerOptions returns the options for connecting to the server object.
func (c *Config) ServerOptions() native.ServerOptions {
	return native.ServerOptions{
		ProgID: c.Server.ProgID,
		Attach: c.Server.Attach,
		Root:   c.Server.Root,
	}
}

// HandleOptions returns the bridge handle options: bundled libraries from
// the bridge directory, the platform bridge runtime and a COM connector.
// When the default bridge directory does not exist the install steps are
// skipped and the server is connected directly.
func (c *Config) HandleOptions() bridge.Options {
	opts := bridge.Options{
		Runtime: bridge.NewRuntime(c.Bridge.Entry),
		Connect: bridge.OLEConnector(c.ServerOptions()),
		TempDir: c.Path(c.Bridge.TempDir),
	}
	if dir := c.Path(c.Bridge.Dir); c.bridgeDirSet || dirExists(dir) {
		opts.Artifacts = bridge.DirArtifacts(dir, c.Bridge.X64, c.Bridge.X86)
	}
	return opts
}

// JournalPath returns the absolute journal database path.
func (c *Config) JournalPath() string {
	return c.Path(c.Journal.Path)
}

func dirExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}
