package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/clauselens/core/internal/config"
	"github.com/clauselens/core/internal/modules/system/core/configs"
	"gorm.io/gorm"
)

func NewService(db *gorm.DB, cfgSvc *configs.Service) *Service {
	return &Service{db: db, cfgSvc: cfgSvc}
}

// ResolveDir returns the local archive directory.
func ResolveDir() string {
	if dir := strings.TrimSpace(os.Getenv(EnvArchiveDir)); dir != "" {
		return config.ResolveRuntimePath(dir, "")
	}
	return config.ResolveRuntimePath("", "archives")
}

// CreateZip exports all archive tables as JSON collections into a ZIP.
func (s *Service) CreateZip() (*bytes.Buffer, error) {
	buf := &bytes.Buffer{}
	w := zip.NewWriter(buf)

	exported := make([]string, 0, len(archiveTableNames))
	for _, table := range archiveTableNames {
		var rows []map[string]interface{}
		if err := s.db.Table(table).Find(&rows).Error; err != nil {
			continue
		}

		payload, err := encodeJSONRows(rows)
		if err != nil {
			continue
		}

		f, err := w.Create(path.Join(archiveDBDir, table+".json"))
		if err != nil {
			continue
		}
		if _, err := f.Write(payload); err != nil {
			continue
		}
		exported = append(exported, table)
	}

	m := manifest{
		Format:    archiveFormat,
		Version:   archiveFormatVersion,
		Engine:    "mysql",
		CreatedAt: time.Now().UTC(),
		Tables:    exported,
	}
	if manifestData, err := json.Marshal(m); err == nil {
		if mf, err := w.Create(archiveManifestFile); err == nil {
			_, _ = mf.Write(manifestData)
		}
	}

	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf, nil
}

func encodeJSONRows(rows []map[string]interface{}) ([]byte, error) {
	if rows == nil {
		rows = []map[string]interface{}{}
	}
	normalized := make([]map[string]interface{}, 0, len(rows))
	for _, row := range rows {
		doc := make(map[string]interface{}, len(row))
		for key, value := range row {
			doc[key] = normalizeExportValue(value)
		}
		normalized = append(normalized, doc)
	}
	return json.MarshalIndent(normalized, "", "  ")
}

func normalizeExportValue(value interface{}) interface{} {
	switch v := value.(type) {
	case []byte:
		return string(v)
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, item := range v {
			out[key] = normalizeExportValue(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, 0, len(v))
		for _, item := range v {
			out = append(out, normalizeExportValue(item))
		}
		return out
	default:
		return value
	}
}

// CreateLocal writes a fresh archive into the local archive directory.
func (s *Service) CreateLocal(now time.Time) (*Artifact, error) {
	buf, err := s.CreateZip()
	if err != nil {
		return nil, err
	}
	dir := ResolveDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	filename := fmt.Sprintf("archive-%s.zip", now.Format("2006-01-02T15-04-05"))
	target := filepath.Join(dir, filename)
	if err := os.WriteFile(target, buf.Bytes(), 0o644); err != nil {
		return nil, err
	}

	return &Artifact{Filename: filename, Path: target, Buffer: buf}, nil
}

// List enumerates local archives, newest first.
func (s *Service) List() []Item {
	dir := ResolveDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return []Item{}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return []Item{}
	}

	items := make([]Item, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".zip") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		items = append(items, Item{Filename: e.Name(), Size: formatSize(info.Size())})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Filename > items[j].Filename })
	return items
}

// Read loads one local archive by filename.
func (s *Service) Read(filename string) ([]byte, error) {
	name := filepath.Base(strings.TrimSpace(filename))
	if name == "" || !strings.HasSuffix(name, ".zip") {
		return nil, fmt.Errorf("invalid archive filename")
	}
	return os.ReadFile(filepath.Join(ResolveDir(), name))
}

// Delete removes one local archive by filename.
func (s *Service) Delete(filename string) error {
	name := filepath.Base(strings.TrimSpace(filename))
	if name == "" || !strings.HasSuffix(name, ".zip") {
		return fmt.Errorf("invalid archive filename")
	}
	err := os.Remove(filepath.Join(ResolveDir(), name))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Rotate deletes the oldest local archives beyond keep. Returns the number
// of files removed.
func (s *Service) Rotate(keep int) int {
	if keep < 1 {
		return 0
	}
	items := s.List()
	if len(items) <= keep {
		return 0
	}
	removed := 0
	for _, item := range items[keep:] {
		if err := os.Remove(filepath.Join(ResolveDir(), item.Filename)); err == nil {
			removed++
		}
	}
	return removed
}

// UploadS3 ships an artifact to the configured S3 bucket under the
// archive key template.
func (s *Service) UploadS3(ctx context.Context, artifact *Artifact, now time.Time) (string, error) {
	cfg, err := s.cfgSvc.Get()
	if err != nil {
		return "", err
	}
	target, err := newS3Target(cfg.S3Options)
	if err != nil {
		return "", err
	}
	key := renderObjectKey(cfg.ArchiveOptions.Path, artifact.Filename, now)
	if err := target.Upload(ctx, key, artifact.Buffer.Bytes(), "application/zip"); err != nil {
		return "", err
	}
	return key, nil
}

func formatSize(size int64) string {
	switch {
	case size >= 1<<20:
		return fmt.Sprintf("%.2f MB", float64(size)/(1<<20))
	case size >= 1<<10:
		return fmt.Sprintf("%.2f KB", float64(size)/(1<<10))
	default:
		return fmt.Sprintf("%d B", size)
	}
}
