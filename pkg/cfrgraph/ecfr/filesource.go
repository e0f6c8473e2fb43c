package ecfr

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/cognicore/cfrgraph/pkg/cfrgraph/internalerr"
)

// Snapshot layout, relative to the snapshot directory. The document date is
// not part of the layout: a snapshot holds one revision per title.
func agenciesFile() string                 { return "agencies.json" }
func titlesFile() string                   { return "titles.json" }
func fullDocumentFile(title string) string { return filepath.Join("full", "title-"+title+".xml") }
func structureFile(title string) string    { return filepath.Join("structure", "title-"+title+".json") }
func correctionsFile(title string) string  { return filepath.Join("corrections", "title-"+title+".json") }

// FileSource serves payloads from a snapshot directory. A missing file
// surfaces as a fetch failure, exactly like an HTTP 404.
type FileSource struct {
	Dir string
}

func (f FileSource) Agencies(ctx context.Context) (AgenciesResponse, error) {
	var out AgenciesResponse
	err := f.readJSON(agenciesFile(), &out)
	return out, err
}

func (f FileSource) Titles(ctx context.Context) (TitlesResponse, error) {
	var out TitlesResponse
	err := f.readJSON(titlesFile(), &out)
	return out, err
}

func (f FileSource) FullDocument(ctx context.Context, title, date string) (string, error) {
	data, err := f.read(fullDocumentFile(title))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (f FileSource) Structure(ctx context.Context, title, date string) (StructureNode, error) {
	var out StructureNode
	err := f.readJSON(structureFile(title), &out)
	return out, err
}

func (f FileSource) Corrections(ctx context.Context, title string) (CorrectionsResponse, error) {
	var out CorrectionsResponse
	err := f.readJSON(correctionsFile(title), &out)
	return out, err
}

func (f FileSource) read(name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(f.Dir, name))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrFetch, err)
	}
	return data, nil
}

func (f FileSource) readJSON(name string, v any) error {
	data, err := f.read(name)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: decode %s: %v", internalerr.ErrMalformed, name, err)
	}
	return nil
}

// WriteSnapshot downloads the agency directory, the title list and, for each
// of the given titles, the full document, structure tree and corrections into
// dir using the FileSource layout. Per-title failures are logged and skipped.
func WriteSnapshot(ctx context.Context, c *Client, dir string, titles []string, date string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	for _, sub := range []string{"full", "structure", "corrections"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return fmt.Errorf("create snapshot dir: %w", err)
		}
	}

	required := []struct{ path, file string }{
		{AgenciesPath(), agenciesFile()},
		{TitlesPath(), titlesFile()},
	}
	for _, r := range required {
		if err := copyPayload(ctx, c, dir, r.path, r.file); err != nil {
			return err
		}
	}

	for _, title := range titles {
		perTitle := []struct{ path, file string }{
			{FullDocumentPath(title, date), fullDocumentFile(title)},
			{StructurePath(title, date), structureFile(title)},
			{CorrectionsPath(title), correctionsFile(title)},
		}
		for _, p := range perTitle {
			if err := copyPayload(ctx, c, dir, p.path, p.file); err != nil {
				logger.Warn("snapshot payload skipped", "title", title, "path", p.path, "error", err)
			}
		}
		logger.Info("snapshot title written", "title", title)
	}
	return nil
}

func copyPayload(ctx context.Context, c *Client, dir, path, file string) error {
	body, err := c.Fetch(ctx, path)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, file), body, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", file, err)
	}
	return nil
}
