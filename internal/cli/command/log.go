package command

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/miniredis-go/internal/cli/output"
	"github.com/yndnr/miniredis-go/internal/storage/aof"
)

// LogCommand returns the log subcommand group. It reads append log
// segments from disk and does not contact a server.
func LogCommand() *cli.Command {
	dirFlag := &cli.StringFlag{
		Name:     "dir",
		Aliases:  []string{"d"},
		Usage:    "Append log directory",
		Required: true,
	}
	return &cli.Command{
		Name:  "log",
		Usage: "Inspect append log segments",
		Subcommands: []*cli.Command{
			{
				Name:  "dump",
				Usage: "Print every logged mutation",
				Flags: []cli.Flag{
					dirFlag,
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Stop after this many records (0 = all)",
					},
				},
				Action: logDump,
			},
			{
				Name:   "stats",
				Usage:  "Print segment count and size",
				Flags:  []cli.Flag{dirFlag},
				Action: logStats,
			},
		},
	}
}

// dumpRecord is the JSON shape of a logged mutation.
type dumpRecord struct {
	Seq      int      `json:"seq"`
	Op       string   `json:"op"`
	Key      string   `json:"key"`
	Deadline string   `json:"deadline,omitempty"`
	Args     []string `json:"args"`
}

func logDump(c *cli.Context) error {
	r, err := aof.NewReader(c.String("dir"))
	if err != nil {
		return fmt.Errorf("open append log: %w", err)
	}
	defer r.Close()

	limit := c.Int("limit")
	var records []dumpRecord
	var readErr error
	for limit <= 0 || len(records) < limit {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// Keep what was read; a torn tail is normal after a crash.
			readErr = err
			break
		}
		d := dumpRecord{
			Seq:  len(records) + 1,
			Op:   string(rec.Op()),
			Key:  rec.Key(),
			Args: rec.Strings(),
		}
		if ms := rec.DeadlineMs(); ms > 0 {
			d.Deadline = time.UnixMilli(ms).UTC().Format(time.RFC3339Nano)
		}
		records = append(records, d)
	}

	out := writer(c)
	if Settings(c).Output == string(output.FormatJSON) {
		if records == nil {
			records = []dumpRecord{}
		}
		if err := (&output.JSONFormatter{}).Format(out, records); err != nil {
			return err
		}
	} else {
		tbl := output.NewTable("SEQ", "OP", "KEY", "DEADLINE", "VALUE")
		for _, d := range records {
			value := ""
			if d.Op == string(aof.OpSet) && len(d.Args) > 2 {
				value = strconv.Quote(d.Args[2])
			}
			tbl.AddRow(strconv.Itoa(d.Seq), d.Op, d.Key, d.Deadline, value)
		}
		if err := tbl.Render(out); err != nil {
			return err
		}
	}

	if readErr != nil {
		return fmt.Errorf("stopped after %d records: %w", len(records), readErr)
	}
	return nil
}

func logStats(c *cli.Context) error {
	comp := aof.NewCompactor(c.String("dir"))
	files, err := comp.FileCount()
	if err != nil {
		return err
	}
	size, err := comp.TotalSize()
	if err != nil {
		return err
	}

	out := writer(c)
	if Settings(c).Output == string(output.FormatJSON) {
		return (&output.JSONFormatter{}).Format(out, map[string]int64{
			"segments": int64(files),
			"bytes":    size,
		})
	}
	tbl := output.NewTable("SEGMENTS", "BYTES")
	tbl.AddRow(strconv.Itoa(files), strconv.FormatInt(size, 10))
	return tbl.Render(out)
}
