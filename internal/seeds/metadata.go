package seeds

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/Yates-Labs/sleuth/internal/logger"
	"github.com/Yates-Labs/sleuth/internal/paths"
)

// MetadataWriter is a Hook that stores every record in its own file named
// <fn>_<mode>_<batch_index>_<unix-millis>.json.
type MetadataWriter struct {
	dir string
	log *zap.Logger
	now func() time.Time
}

// NewMetadataWriter writes into dir, creating it on first use.
func NewMetadataWriter(dir string, log *zap.Logger) *MetadataWriter {
	return &MetadataWriter{dir: dir, log: logger.OrNop(log), now: time.Now}
}

// Hook writes meta. Failures are logged, never returned.
func (w *MetadataWriter) Hook(meta Metadata) {
	path, err := w.write(meta)
	if err != nil {
		w.log.Error("failed to save metadata", zap.String("fn", meta.Fn), zap.Error(err))
		return
	}
	w.log.Debug("saved metadata", zap.String("path", path))
}

func (w *MetadataWriter) write(meta Metadata) (string, error) {
	if err := paths.Ensure(w.dir); err != nil {
		return "", err
	}

	fn := meta.Fn
	if fn == "" {
		fn = "unknown"
	}
	mode := meta.Mode
	if mode == "" {
		mode = "unknown"
	}
	name := fmt.Sprintf("%s_%s_%d_%d.json", fn, mode, meta.BatchIndex, w.now().UnixMilli())
	path := filepath.Join(w.dir, name)

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
