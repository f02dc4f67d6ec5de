package report

import (
	"archive/zip"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rotisserie/eris"

	"financial-reconciliation-backend/internal/reconcile"
)

// ConfigSnapshot serializes the thresholds a run was executed with, so the
// result bundle is self-describing for audit.
func ConfigSnapshot(runID string, cfg reconcile.Config, generatedAt time.Time) ([]byte, error) {
	snapshot := struct {
		RunID       string           `json:"run_id"`
		GeneratedAt string           `json:"generated_at"`
		Config      reconcile.Config `json:"config"`
	}{
		RunID:       runID,
		GeneratedAt: generatedAt.Format(time.RFC3339),
		Config:      cfg,
	}
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "report: marshal config snapshot")
	}
	return data, nil
}

// WriteBundle zips the given files into w. Keys are archive entry names,
// values are paths on disk; missing files are skipped rather than failing
// the bundle.
func WriteBundle(w io.Writer, files map[string]string) error {
	zw := zip.NewWriter(w)
	names := make([]string, 0, len(files))
	for arcname := range files {
		names = append(names, arcname)
	}
	sort.Strings(names)
	for _, arcname := range names {
		path := files[arcname]
		src, err := os.Open(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return eris.Wrap(err, "report: open bundle file")
		}
		dst, err := zw.Create(filepath.ToSlash(arcname))
		if err != nil {
			src.Close()
			return eris.Wrap(err, "report: add bundle entry")
		}
		if _, err := io.Copy(dst, src); err != nil {
			src.Close()
			return eris.Wrap(err, "report: copy bundle entry")
		}
		src.Close()
	}
	if err := zw.Close(); err != nil {
		return eris.Wrap(err, "report: close bundle")
	}
	return nil
}
