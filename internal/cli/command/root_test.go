package command

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/miniredis-go/internal/server/redisserver"
	"github.com/yndnr/miniredis-go/internal/storage/aof"
	"github.com/yndnr/miniredis-go/internal/storage/memory"
)

// startServer runs a server on a loopback port and isolates the CLI from
// the user's config file and environment.
func startServer(t *testing.T) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("MINIREDIS_SERVER", "")

	srv := redisserver.New(&redisserver.Config{Addr: "127.0.0.1:0"}, redisserver.NewDispatcher(memory.New()))
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv.Addr().String()
}

// runApp runs the CLI with args and returns what it printed.
func runApp(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	app := App()
	out := &bytes.Buffer{}
	app.Writer = out
	app.ErrWriter = out
	app.Reader = strings.NewReader(stdin)
	err := app.Run(append([]string{"miniredis-cli"}, args...))
	return out.String(), err
}

func TestApp(t *testing.T) {
	app := App()
	if app.Name != "miniredis-cli" {
		t.Errorf("Name = %q, want %q", app.Name, "miniredis-cli")
	}

	commandNames := make(map[string]bool)
	for _, cmd := range app.Commands {
		commandNames[cmd.Name] = true
	}
	for _, name := range []string{"ping", "get", "set", "del", "exec", "log"} {
		if !commandNames[name] {
			t.Errorf("missing required command: %s", name)
		}
	}

	flagNames := make(map[string]bool)
	for _, flag := range app.Flags {
		flagNames[flag.Names()[0]] = true
	}
	for _, name := range []string{"config", "server", "output", "timeout"} {
		if !flagNames[name] {
			t.Errorf("missing required flag: %s", name)
		}
	}
}

// ============================================================
// One-shot Command Tests
// ============================================================

func TestCommands(t *testing.T) {
	addr := startServer(t)

	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr error
	}{
		{"ping", []string{"ping"}, "PONG\n", nil},
		{"get missing", []string{"get", "k"}, "(nil)\n", nil},
		{"set", []string{"set", "k", "hello world"}, "OK\n", nil},
		{"get", []string{"get", "k"}, "\"hello world\"\n", nil},
		{"set ex", []string{"set", "--ex", "100", "t", "v"}, "OK\n", nil},
		{"exec ttl", []string{"exec", "ttl", "t"}, "(integer) 100\n", nil},
		{"del", []string{"del", "k", "t", "missing"}, "(integer) 2\n", nil},
		{"exec unknown", []string{"exec", "foo", "-x"}, "(error) ERR unknown command `foo`\n", ErrReply},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := runApp(t, "", append([]string{"-s", addr}, tt.args...)...)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Run() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCommands_Usage(t *testing.T) {
	addr := startServer(t)
	for _, args := range [][]string{
		{"get"},
		{"set", "k"},
		{"del"},
		{"exec"},
		{"ping", "extra"},
	} {
		if _, err := runApp(t, "", append([]string{"-s", addr}, args...)...); err == nil {
			t.Errorf("Run(%q) succeeded, want usage error", args)
		}
	}
}

func TestCommands_OutputFormats(t *testing.T) {
	addr := startServer(t)
	if _, err := runApp(t, "", "-s", addr, "set", "k", "v"); err != nil {
		t.Fatalf("set error = %v", err)
	}

	got, err := runApp(t, "", "-s", addr, "-o", "raw", "get", "k")
	if err != nil {
		t.Fatalf("get error = %v", err)
	}
	if got != "v\n" {
		t.Errorf("raw output = %q, want %q", got, "v\n")
	}

	got, err = runApp(t, "", "-s", addr, "-o", "json", "get", "k")
	if err != nil {
		t.Fatalf("get error = %v", err)
	}
	if !strings.Contains(got, `"value":"v"`) {
		t.Errorf("json output = %q", got)
	}

	if _, err := runApp(t, "", "-s", addr, "-o", "xml", "ping"); err == nil {
		t.Error("Run() with -o xml succeeded, want error")
	}
}

func TestCommands_DialError(t *testing.T) {
	startServer(t)
	if _, err := runApp(t, "", "-s", "127.0.0.1:1", "-t", "200ms", "ping"); err == nil {
		t.Error("ping against a closed port succeeded")
	}
}

// ============================================================
// REPL Tests
// ============================================================

func TestREPL(t *testing.T) {
	addr := startServer(t)

	got, err := runApp(t, "set k \"a b\"\nget k\nfoo\nquit\nget k\n", "-s", addr)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	for _, want := range []string{
		addr + "> ",
		"OK\n",
		"\"a b\"\n",
		"(error) ERR unknown command `foo`",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("REPL output missing %q:\n%s", want, got)
		}
	}
	if strings.Count(got, "\"a b\"") != 1 {
		t.Errorf("commands after quit were executed:\n%s", got)
	}
}

func TestREPL_UnknownSubcommand(t *testing.T) {
	addr := startServer(t)
	if _, err := runApp(t, "", "-s", addr, "nosuch"); err == nil {
		t.Error("Run() with an unknown command succeeded")
	}
}

// ============================================================
// Log Tests
// ============================================================

func writeLog(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	w, err := aof.NewWriter(aof.DefaultConfig(dir))
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}
	deadline := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC).UnixMilli()
	for _, rec := range []aof.Record{
		aof.NewSetRecord("a", []byte("one"), 0),
		aof.NewSetRecord("b", []byte("two"), deadline),
		aof.NewPExpireAtRecord("a", deadline),
		aof.NewDelRecord("b"),
	} {
		if err := w.Append(rec); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return dir
}

func TestLogDump_Table(t *testing.T) {
	startServer(t)
	dir := writeLog(t)

	got, err := runApp(t, "", "log", "dump", "--dir", dir)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	lines := strings.Split(strings.TrimRight(got, "\n"), "\n")
	if len(lines) != 5 {
		t.Fatalf("got %d lines, want header + 4:\n%s", len(lines), got)
	}
	if !strings.Contains(lines[2], "2030-01-02T03:04:05Z") || !strings.Contains(lines[2], `"two"`) {
		t.Errorf("SET with deadline row = %q", lines[2])
	}
	if !strings.Contains(lines[3], "PEXPIREAT") {
		t.Errorf("row 3 = %q", lines[3])
	}
}

func TestLogDump_JSONLimit(t *testing.T) {
	startServer(t)
	dir := writeLog(t)

	got, err := runApp(t, "", "-o", "json", "log", "dump", "--dir", dir, "--limit", "2")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	var records []dumpRecord
	if err := json.Unmarshal([]byte(got), &records); err != nil {
		t.Fatalf("Unmarshal() error = %v\n%s", err, got)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[1].Op != "SET" || records[1].Key != "b" || records[1].Deadline == "" {
		t.Errorf("record 2 = %+v", records[1])
	}
}

func TestLogDump_Empty(t *testing.T) {
	startServer(t)
	got, err := runApp(t, "", "-o", "json", "log", "dump", "--dir", t.TempDir())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if strings.TrimSpace(got) != "[]" {
		t.Errorf("output = %q, want []", got)
	}
}

func TestLogStats(t *testing.T) {
	startServer(t)
	dir := writeLog(t)

	got, err := runApp(t, "", "-o", "json", "log", "stats", "--dir", dir)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	var stats map[string]int64
	if err := json.Unmarshal([]byte(got), &stats); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if stats["segments"] != 1 || stats["bytes"] <= 0 {
		t.Errorf("stats = %v", stats)
	}
}
