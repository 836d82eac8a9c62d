package main

import (
	"testing"
	"time"
)

func TestParseAsOf(t *testing.T) {
	now := time.Date(2024, 3, 15, 23, 30, 0, 0, time.FixedZone("EST", -5*3600))

	got, err := parseAsOf("", now)
	if err != nil || !got.Equal(now) || got.Location() != time.UTC {
		t.Errorf("parseAsOf(\"\") = %v, %v; want %v in UTC", got, err, now.UTC())
	}

	got, err = parseAsOf("2024-03-14", now)
	if err != nil || got.Format("2006-01-02") != "2024-03-14" {
		t.Errorf("parseAsOf(2024-03-14) = %v, %v", got, err)
	}

	if _, err := parseAsOf("14/03/2024", now); err == nil {
		t.Error("expected error for malformed date")
	}
}

func TestRootCommandHasSubcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"serve", "ingest"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not found: %v", name, err)
		}
	}
	ingest, _, _ := root.Find([]string{"ingest"})
	if ingest.Flags().Lookup("date") == nil {
		t.Error("ingest is missing --date")
	}
}
