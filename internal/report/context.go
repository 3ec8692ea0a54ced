package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"telegram-chat-analyzer/internal/domain"
)

// wallThreshold — максимальный интервал между сообщениями одного автора,
// при котором они считаются одной "стеной".
const wallThreshold = 5 * time.Minute

// ParseContextRange разбирает аргумент даты контекстного отчета.
// Поддерживаются три формы: "-1" (вчерашний день), "YYYY-MM-DD" (один день)
// и "YYYY-MM-DD_YYYY-MM-DD" (период включительно).
func ParseContextRange(dateArg string, now time.Time) (time.Time, time.Time, error) {
	dayBounds := func(d time.Time) (time.Time, time.Time) {
		start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
		return start, start.Add(24*time.Hour - time.Nanosecond)
	}

	if dateArg == "-1" {
		start, end := dayBounds(now.AddDate(0, 0, -1))
		return start, end, nil
	}

	if strings.Contains(dateArg, "_") {
		parts := strings.SplitN(dateArg, "_", 2)
		from, err1 := time.Parse("2006-01-02", parts[0])
		to, err2 := time.Parse("2006-01-02", parts[1])
		if err1 != nil || err2 != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("неверный формат периода: %s (ожидается YYYY-MM-DD_YYYY-MM-DD)", dateArg)
		}
		start, _ := dayBounds(from)
		_, end := dayBounds(to)
		if start.After(end) {
			return time.Time{}, time.Time{}, fmt.Errorf("начальная дата не может быть позже конечной: %s", dateArg)
		}
		return start, end, nil
	}

	d, err := time.Parse("2006-01-02", dateArg)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("неверный формат даты: %s (ожидается YYYY-MM-DD или YYYY-MM-DD_YYYY-MM-DD)", dateArg)
	}
	start, end := dayBounds(d)
	return start, end, nil
}

// contextRangeLabel — суффикс имени выходного файла для аргумента даты.
func contextRangeLabel(dateArg string, now time.Time) string {
	switch {
	case dateArg == "-1":
		return now.AddDate(0, 0, -1).Format("2006-01-02")
	case strings.Contains(dateArg, "_"):
		return strings.Replace(dateArg, "_", "_to_", 1)
	default:
		return dateArg
	}
}

// contextMessage — одно сообщение контекстного отчета.
type contextMessage struct {
	from string
	at   time.Time
	text string
}

// BuildContextReport пишет хронологический дамп сообщений за указанный
// период в текстовый файл. Подряд идущие сообщения одного автора с
// интервалом меньше пяти минут группируются в одну "стену" под общим
// заголовком. Возвращает путь к записанному файлу.
func BuildContextReport(export *domain.Export, outDir, dateArg string) (string, error) {
	now := time.Now()
	start, end, err := ParseContextRange(dateArg, now)
	if err != nil {
		return "", err
	}

	var filtered []contextMessage
	for i := range export.Messages {
		m := &export.Messages[i]
		at := parseNormNaive(m.Norm.DateNorm)
		if at == nil || at.Before(start) || at.After(end) {
			continue
		}
		if strings.TrimSpace(m.Norm.TextPlain) == "" {
			continue
		}
		from := m.From
		if from == "" {
			from = "Unknown"
		}
		filtered = append(filtered, contextMessage{from: from, at: *at, text: m.Norm.TextPlain})
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].at.Before(filtered[j].at)
	})

	var sb strings.Builder
	var group []contextMessage
	flush := func() {
		if len(group) == 0 {
			return
		}
		fmt.Fprintf(&sb, "%s [%s]\n", group[0].from, group[0].at.Format("2006-01-02 15:04:05"))
		for _, m := range group {
			fmt.Fprintf(&sb, "\"%s\"\n", m.text)
		}
		sb.WriteString("\n")
		group = group[:0]
	}
	for _, m := range filtered {
		if len(group) > 0 {
			last := group[len(group)-1]
			if last.from != m.from || m.at.Sub(last.at) >= wallThreshold {
				flush()
			}
		}
		group = append(group, m)
	}
	flush()

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir %s: %w", outDir, err)
	}
	outPath := filepath.Join(outDir, fmt.Sprintf("context_%s.txt", contextRangeLabel(dateArg, now)))
	if err := os.WriteFile(outPath, []byte(sb.String()), 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", outPath, err)
	}
	return outPath, nil
}

// parseNormNaive разбирает date_norm, отбрасывая смещение зоны:
// сравнение с границами периода идет по настенному времени.
func parseNormNaive(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02T15:04:05-07:00", "2006-01-02T15:04:05Z", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			naive := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
			return &naive
		}
	}
	return nil
}
