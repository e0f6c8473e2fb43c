package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cognicore/cfrgraph/pkg/cfrgraph/analytics"
	"github.com/cognicore/cfrgraph/pkg/cfrgraph/config"
)

// writeSnapshot lays out a one-title snapshot directory.
func writeSnapshot(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"agencies.json": `{"agencies": [{"name": "Department of Agriculture", "short_name": "USDA",
		  "slug": "agriculture-department", "cfr_references": [{"title": 7}]}]}`,
		"titles.json": `{"titles": [{"number": 7, "name": "Agriculture"}, {"number": 8, "name": "Aliens and Nationality"}]}`,
		"full/title-7.xml": `<ECFR><SECTION><SECTNO>§ 1.1</SECTNO><SUBJECT>Purpose.</SUBJECT>
		  <P>This part sets policy.</P><HISTORY>61 FR 1, 1996-01-02; 70 FR 2, 2005-05-05</HISTORY></SECTION></ECFR>`,
		"structure/title-7.json":   `{"type": "title", "children": [{"type": "section", "label": "§ 1.1", "identifier": "1.1"}]}`,
		"corrections/title-7.json": `{"ecfr_corrections": []}`,
	}
	for name, body := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(io.Discard)
	if err := root.Execute(); err != nil {
		t.Fatalf("cfrgraph %s: %v", strings.Join(args, " "), err)
	}
	return out.String()
}

func TestIngestThenReport(t *testing.T) {
	snap := writeSnapshot(t)
	db := filepath.Join(t.TempDir(), "graph.db")

	var ingested struct {
		RunID     string `json:"runId"`
		Titles    int    `json:"titles"`
		Synthetic int    `json:"syntheticChanges"`
	}
	if err := json.Unmarshal([]byte(run(t, "ingest", "--db", db, "--snapshot-dir", snap)), &ingested); err != nil {
		t.Fatalf("decode ingest output: %v", err)
	}
	// an empty corrections feed is replaced by placeholders
	if ingested.RunID == "" || ingested.Titles != 2 || ingested.Synthetic < 5 {
		t.Fatalf("ingest output: %+v", ingested)
	}

	var rows []analytics.Row
	if err := json.Unmarshal([]byte(run(t, "report", "title-words", "--db", db, "--top", "1")), &rows); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if len(rows) != 1 || rows[0].EntityType != analytics.EntityTitle {
		t.Fatalf("report rows: %+v", rows)
	}

	summary := run(t, "summary", "--db", db)
	if !strings.Contains(summary, "Department of Agriculture") {
		t.Errorf("summary output:\n%s", summary)
	}

	sections := run(t, "sections", "7", "--db", db, "--changes")
	if !strings.Contains(sections, `"title-7-1-1"`) {
		t.Errorf("sections output:\n%s", sections)
	}
	if titles := run(t, "titles", "--db", db, "--agency", "agriculture-department"); !strings.Contains(titles, `"Agriculture"`) {
		t.Errorf("titles output:\n%s", titles)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfrgraph.yaml")
	if err := os.WriteFile(path, []byte("store:\n  driver: memory\nlog:\n  format: json\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := loadConfig(&globalFlags{configPath: path, storePath: "/tmp/x.db", snapshotDir: "snap"})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Store.Driver != "sqlite" || cfg.Store.Path != "/tmp/x.db" || cfg.API.SnapshotDir != "snap" || cfg.Log.Format != "json" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(config.Log{Level: "warn", Format: "json"}, &buf)
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("hidden")
	logger.Warn("shown", "title", "7")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), `"title":"7"`) {
		t.Errorf("log output: %q", buf.String())
	}
	if _, err := newLogger(config.Log{Level: "loud"}, io.Discard); err == nil {
		t.Error("expected an error for an unknown level")
	}
}
