package exporter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"telegram-chat-analyzer/internal/ports"
)

// JsonExporter реализует интерфейс Exporter: сериализует документы
// в отдельные JSON-файлы внутри каталога outDir.
type JsonExporter struct {
	outDir string
}

// NewJsonExporter создает новый экземпляр JsonExporter.
func NewJsonExporter(outDir string) ports.Exporter {
	return &JsonExporter{outDir: outDir}
}

// Export записывает документ под именем name в каталог экспортера.
// Не-ASCII символы (эмодзи, кириллица) сохраняются как есть.
func (e *JsonExporter) Export(name string, doc any) (string, error) {
	if err := os.MkdirAll(e.outDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir %s: %w", e.outDir, err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return "", fmt.Errorf("failed to encode %s: %w", name, err)
	}

	dst := filepath.Join(e.outDir, name)
	if err := os.WriteFile(dst, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", dst, err)
	}
	return dst, nil
}
