package cli

import "testing"

func TestParseOptionsDefaults(t *testing.T) {
	opts, err := parseOptions([]string{"check"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if opts.command != "check" || opts.path != "." || opts.language != "auto" {
		t.Errorf("unexpected defaults: %+v", opts)
	}
	if opts.configPath != defaultConfigPath {
		t.Errorf("unexpected config path: %s", opts.configPath)
	}
}

func TestParseOptionsFixFlags(t *testing.T) {
	opts, err := parseOptions([]string{"fix", "--backup", "--aggressive", "--dry-run", "--lang", "python", "/proj"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !opts.backup || !opts.aggressive || !opts.dryRun {
		t.Errorf("flags not parsed: %+v", opts)
	}
	if opts.language != "python" {
		t.Errorf("unexpected language: %s", opts.language)
	}
	if opts.path != "/proj" {
		t.Errorf("unexpected path: %s", opts.path)
	}
}

func TestParseOptionsDeps(t *testing.T) {
	opts, err := parseOptions([]string{"deps", "--remove-unused"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !opts.removeUnused {
		t.Error("expected remove-unused set")
	}
}

func TestParseOptionsRejectsUnknown(t *testing.T) {
	if _, err := parseOptions([]string{"frobnicate"}); err == nil {
		t.Error("expected error for unknown command")
	}
	if _, err := parseOptions(nil); err == nil {
		t.Error("expected usage error for empty args")
	}
	if _, err := parseOptions([]string{"check", "--no-such-flag"}); err == nil {
		t.Error("expected error for unknown flag")
	}
}

func TestParseOptionsHistoryAndRestore(t *testing.T) {
	opts, err := parseOptions([]string{"history", "--limit", "5"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if opts.limit != 5 {
		t.Errorf("unexpected limit: %d", opts.limit)
	}

	opts, err = parseOptions([]string{"restore", "--snapshot", "abc-123", "/proj"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if opts.snapshotID != "abc-123" || opts.path != "/proj" {
		t.Errorf("unexpected restore options: %+v", opts)
	}
}
