package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"telegram-chat-analyzer/internal/adapters/exporter"
	"telegram-chat-analyzer/internal/adapters/parser"
	"telegram-chat-analyzer/internal/adapters/source"
	"telegram-chat-analyzer/internal/core/services"
	"telegram-chat-analyzer/internal/domain"
	"telegram-chat-analyzer/internal/pkg/config"
	"telegram-chat-analyzer/internal/pkg/exportfile"
	"telegram-chat-analyzer/internal/report"
)

const usage = `Использование: analyzer <команда> [-input файл]

Команды:
  params      обзор схемы сырого JSON-экспорта (Markdown)
  normalize   нормализация экспорта (сдвиг, текст, медиа) -> [0].json
  agg         построение агрегатов из нормализованного файла
  social      построение социального графа из нормализованного файла
  html        HTML-отчет (десктопный шаблон)
  mobile      HTML-отчет (мобильный шаблон)
  excel       Excel-отчет по активности
  authortext  отчет "авторы и их сообщения" (JSON + TXT)
  context     текстовый дамп сообщений за период (-date -1|YYYY-MM-DD|YYYY-MM-DD_YYYY-MM-DD)
  all         полный пайплайн: normalize + agg + social + отчеты
`

func main() {
	if err := run(); err != nil {
		slog.Error("команда завершилась ошибкой", "error", err)
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	command := os.Args[1]

	fs := flag.NewFlagSet(command, flag.ExitOnError)
	input := fs.String("input", "", "явный путь к входному файлу (по умолчанию — самый свежий в каталоге)")
	date := fs.String("date", "-1", "период контекстного дампа: -1, YYYY-MM-DD или YYYY-MM-DD_YYYY-MM-DD")
	fs.Parse(os.Args[2:])

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	var level slog.Level
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	app := &application{cfg: cfg, log: logger}

	switch command {
	case "params":
		return app.runParams(*input)
	case "normalize":
		_, err := app.runNormalize(*input)
		return err
	case "agg":
		return app.runAggregates(*input)
	case "social":
		return app.runSocialGraph(*input)
	case "html":
		return report.BuildHTMLReport(cfg.Paths.AggDir, "desktop.html",
			filepath.Join(cfg.Paths.OutDir, "report.html"))
	case "mobile":
		return report.BuildHTMLReport(cfg.Paths.AggDir, "mobile.html",
			filepath.Join(cfg.Paths.OutDir, "report_mobile.html"))
	case "excel":
		return app.runExcel(*input)
	case "authortext":
		return app.runAuthorText(*input)
	case "context":
		return app.runContext(*input, *date)
	case "all":
		return app.runAll(*input)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("неизвестная команда: %s", command)
	}
}

// application связывает конфигурацию и сервисы команд CLI.
type application struct {
	cfg *config.Config
	log *slog.Logger
}

// loadRaw читает и разбирает JSON-файл экспорта.
func (a *application) loadRaw(path string) (*domain.RawExport, error) {
	data, err := source.NewCliSource(path).Fetch()
	if err != nil {
		return nil, err
	}
	raw, err := parser.NewJsonParser().Parse(data)
	if err != nil {
		return nil, fmt.Errorf("не удалось разобрать %s: %w", path, err)
	}
	return raw, nil
}

// loadNormalized находит нормализованный файл и проецирует его в типизированную модель.
func (a *application) loadNormalized(explicit string) (*domain.Export, domain.SourceRef, error) {
	path, err := exportfile.FindNormalizedJSON(a.cfg.Paths.ProcessedDir, explicit)
	if err != nil {
		return nil, domain.SourceRef{}, err
	}
	raw, err := a.loadRaw(path)
	if err != nil {
		return nil, domain.SourceRef{}, err
	}
	export, err := services.ProjectExport(raw)
	if err != nil {
		return nil, domain.SourceRef{}, err
	}
	return export, domain.SourceRef{Path: path, Name: filepath.Base(path)}, nil
}

func (a *application) runParams(explicit string) error {
	path, err := exportfile.FindNewestJSON(a.cfg.Paths.RawDir, explicit)
	if err != nil {
		return err
	}
	out := filepath.Join(a.cfg.Paths.OutDir, "params", "params.md")
	if err := report.BuildParamsReport(path, out); err != nil {
		return err
	}
	a.log.Info("Обзор схемы сохранен", "path", out)
	return nil
}

// runNormalize нормализует самый свежий сырой экспорт и записывает
// результат в каталог processed под именем с нулевым сдвигом.
func (a *application) runNormalize(explicit string) (string, error) {
	path, err := exportfile.FindNewestJSON(a.cfg.Paths.RawDir, explicit)
	if err != nil {
		return "", err
	}

	raw, err := a.loadRaw(path)
	if err != nil {
		return "", err
	}

	shift, ok := exportfile.ParseShift(path)
	if !ok {
		a.log.Warn("Имя файла не содержит сдвига, используется 0", "file", filepath.Base(path))
	}

	normalizer := services.NewNormalizeService(a.log)
	if _, err := normalizer.Normalize(raw, shift); err != nil {
		return "", err
	}

	if err := os.MkdirAll(a.cfg.Paths.ProcessedDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create processed dir: %w", err)
	}
	outPath := filepath.Join(a.cfg.Paths.ProcessedDir,
		filepath.Base(exportfile.ReplaceShiftWithZero(path)))

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(raw.Root); err != nil {
		return "", fmt.Errorf("failed to encode normalized export: %w", err)
	}
	if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", outPath, err)
	}

	a.log.Info("Нормализованный экспорт сохранен", "path", outPath, "shift_hours", shift)
	return outPath, nil
}

func (a *application) runAggregates(explicit string) error {
	export, src, err := a.loadNormalized(explicit)
	if err != nil {
		return err
	}

	builder := services.NewAggregateService(services.WithAggregateLogger(a.log))
	reportDoc, err := builder.Build(export, src)
	if err != nil {
		return err
	}

	out := exporter.NewJsonExporter(a.cfg.Paths.AggDir)
	path, err := out.Export("all_aggregates.json", reportDoc)
	if err != nil {
		return err
	}
	a.log.Info("Агрегаты сохранены", "path", path)

	exporter.NewConsoleExporter().PrintSummary(reportDoc)
	return nil
}

func (a *application) runSocialGraph(explicit string) error {
	export, src, err := a.loadNormalized(explicit)
	if err != nil {
		return err
	}

	builder := services.NewSocialGraphService(
		services.WithMinMessages(a.cfg.Analysis.MinAuthorMessages),
		services.WithMattrWindow(a.cfg.Analysis.MattrWindow),
		services.WithSocialLogger(a.log),
	)
	reportDoc, err := builder.Build(export, src)
	if err != nil {
		return err
	}

	out := exporter.NewJsonExporter(a.cfg.Paths.AggDir)
	path, err := out.Export("social_graph.json", reportDoc)
	if err != nil {
		return err
	}
	a.log.Info("Социальный граф сохранен", "path", path)
	return nil
}

func (a *application) runExcel(explicit string) error {
	export, src, err := a.loadNormalized(explicit)
	if err != nil {
		return err
	}
	out := filepath.Join(a.cfg.Paths.OutDir, "report.xlsx")
	if err := report.NewExcelBuilder().Build(export, src, out); err != nil {
		return err
	}
	a.log.Info("Excel-отчет сохранен", "path", out)
	return nil
}

func (a *application) runAuthorText(explicit string) error {
	export, src, err := a.loadNormalized(explicit)
	if err != nil {
		return err
	}
	jsonPath, txtPath, err := report.BuildAuthorTextReport(export, src,
		filepath.Join(a.cfg.Paths.OutDir, "author_text"))
	if err != nil {
		return err
	}
	a.log.Info("Отчет по авторам сохранен", "json", jsonPath, "txt", txtPath)
	return nil
}

func (a *application) runContext(explicit, dateArg string) error {
	export, _, err := a.loadNormalized(explicit)
	if err != nil {
		return err
	}
	path, err := report.BuildContextReport(export, filepath.Join(a.cfg.Paths.OutDir, "context"), dateArg)
	if err != nil {
		return err
	}
	a.log.Info("Контекстный дамп сохранен", "path", path)
	return nil
}

// runAll прогоняет полный пайплайн над самым свежим сырым экспортом.
func (a *application) runAll(explicit string) error {
	normalized, err := a.runNormalize(explicit)
	if err != nil {
		return err
	}
	if err := a.runAggregates(normalized); err != nil {
		return err
	}
	if err := a.runSocialGraph(normalized); err != nil {
		return err
	}
	if err := report.BuildHTMLReport(a.cfg.Paths.AggDir, "desktop.html",
		filepath.Join(a.cfg.Paths.OutDir, "report.html")); err != nil {
		return err
	}
	if err := report.BuildHTMLReport(a.cfg.Paths.AggDir, "mobile.html",
		filepath.Join(a.cfg.Paths.OutDir, "report_mobile.html")); err != nil {
		return err
	}
	if err := a.runExcel(normalized); err != nil {
		return err
	}
	return a.runAuthorText(normalized)
}
