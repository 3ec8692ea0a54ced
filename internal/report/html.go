// Package report содержит рендеры итоговых документов: HTML, Excel,
// Markdown-дамп схемы и отчет "авторы и тексты".
package report

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

//go:embed templates/desktop.html templates/mobile.html
var templatesFS embed.FS

// BuildHTMLReport собирает единый HTML-отчет: шаблон со встроенными данными.
// Плейсхолдер __DATA_JSON__ заменяется содержимым документа агрегатов,
// дополненного социальным графом (если он есть рядом).
func BuildHTMLReport(aggDir, templateName, outHTML string) error {
	aggData, err := os.ReadFile(filepath.Join(aggDir, "all_aggregates.json"))
	if err != nil {
		return fmt.Errorf("не найден главный файл агрегатов: %w", err)
	}

	blob := strings.TrimRight(string(aggData), "\n")

	// Социальный граф опционален: HTML-отчет строится и без него.
	if socialData, err := os.ReadFile(filepath.Join(aggDir, "social_graph.json")); err == nil {
		social := strings.TrimRight(string(socialData), "\n")
		if strings.HasSuffix(blob, "}") && strings.HasPrefix(social, "{") && social != "{}" {
			blob = strings.TrimSuffix(blob, "}") + ",\n\"social_graph\": " + social + "}"
		}
	}

	tmpl, err := templatesFS.ReadFile("templates/" + templateName)
	if err != nil {
		return fmt.Errorf("файл шаблона не найден: %s: %w", templateName, err)
	}

	html := strings.Replace(string(tmpl), "__DATA_JSON__", blob, 1)

	if err := os.MkdirAll(filepath.Dir(outHTML), 0o755); err != nil {
		return fmt.Errorf("failed to create report dir: %w", err)
	}
	if err := os.WriteFile(outHTML, []byte(html), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outHTML, err)
	}
	return nil
}
