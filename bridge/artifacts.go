package bridge

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"runtime"
)

// Arch is the pointer width the bridge library must match.
type Arch uint8

const (
	Arch64 Arch = iota
	Arch32
)

func (a Arch) String() string {
	if a == Arch32 {
		return "x86"
	}
	return "x64"
}

// HostArch reports the architecture of the running process.
func HostArch() Arch {
	switch runtime.GOARCH {
	case "386", "arm", "mips", "mipsle", "wasm":
		return Arch32
	}
	return Arch64
}

// Artifacts locates the bridge libraries shipped with the distribution.
type Artifacts struct {
	FS    fs.FS
	Names map[Arch]string
}

// DirArtifacts serves the x64 and x86 libraries from dir.
func DirArtifacts(dir, x64, x86 string) Artifacts {
	return Artifacts{
		FS: os.DirFS(dir),
		Names: map[Arch]string{
			Arch64: x64,
			Arch32: x86,
		},
	}
}

// install copies the named artifact to a fresh file in tempDir and returns
// its path. The copy stays on disk until the handle is closed because the
// loader keeps it mapped.
func (a Artifacts) install(name, tempDir string) (string, error) {
	src, err := a.FS.Open(name)
	if err != nil {
		return "", err
	}
	defer src.Close()

	dst, err := os.CreateTemp(tempDir, "oapi-bridge-*"+path.Ext(name))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", fmt.Errorf("copying %s: %w", name, err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(dst.Name())
		return "", err
	}
	return dst.Name(), nil
}
