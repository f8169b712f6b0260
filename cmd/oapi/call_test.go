package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/chazu/oapi/cassette"
	"github.com/chazu/oapi/config"
	"github.com/chazu/oapi/journal"
	"github.com/chazu/oapi/native"
)

// writeCassette records one call of method answered with code and an Int
// output of 7.
func writeCassette(t *testing.T, path, method string, code native.Code) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rec := cassette.NewRecorder(native.DispatcherFunc(func(string, []native.Slot) (native.Code, error) {
		return code, nil
	}), f)
	slots := []native.Slot{{Mode: native.ByRef, Kind: native.Int, Value: int32(7)}}
	if _, err := rec.Dispatch(method, slots); err != nil {
		t.Fatalf("recording: %v", err)
	}
}

func TestCallNonzeroCodeReturnsExitStatus(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.cbor")
	out := filepath.Join(dir, "out.cbor")
	writeCassette(t, in, "Fail", 1)

	err := runCall([]string{"-C", dir, "-cassette", in, "-record", out, "-journal", "Fail", "&int"})
	var status exitError
	if !errors.As(err, &status) || status != 1 {
		t.Fatalf("runCall error = %v, want exit status 1", err)
	}

	// The command returned normally, so the recorder and journal were
	// flushed and closed by its deferred cleanup.
	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("opening recorded cassette: %v", err)
	}
	defer f.Close()
	recs, err := cassette.Load(f)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(recs) != 1 || recs[0].Code != 1 {
		t.Errorf("recorded %+v, want one call with code 1", recs)
	}

	j, err := journal.Open(config.Default(dir).JournalPath())
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	defer j.Close()
	entries, err := j.Recent(1)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 1 || entries[0].Method != "Fail" || entries[0].Code != 1 {
		t.Errorf("journal = %+v", entries)
	}
}

func TestCallSuccessReturnsNil(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.cbor")
	writeCassette(t, in, "Echo", native.CodeOK)

	if err := runCall([]string{"-C", dir, "-cassette", in, "Echo", "&int"}); err != nil {
		t.Errorf("runCall = %v", err)
	}
}

func TestExitErrorMessage(t *testing.T) {
	if got := exitError(3).Error(); got != "exit status 3" {
		t.Errorf("Error() = %q", got)
	}
}
