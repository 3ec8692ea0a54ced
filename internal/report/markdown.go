package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"telegram-chat-analyzer/internal/pkg/exportfile"
)

// schemaStats накапливает статистику обхода JSON-документа.
type schemaStats struct {
	keyCounter      *pathCounter
	pathCounter     *pathCounter
	typeCounter     map[string]*pathCounter
	arrayItemsTotal map[string]int
	arrayContainers map[string]int
}

// pathCounter считает вхождения строковых ключей, запоминая порядок
// первого появления для детерминированного вывода.
type pathCounter struct {
	counts map[string]int
	order  []string
}

func newPathCounter() *pathCounter {
	return &pathCounter{counts: map[string]int{}}
}

func (c *pathCounter) Add(key string, n int) {
	if _, ok := c.counts[key]; !ok {
		c.order = append(c.order, key)
	}
	c.counts[key] += n
}

func (c *pathCounter) Get(key string) int {
	return c.counts[key]
}

// MostCommon возвращает пары (ключ, счетчик) по убыванию счетчика;
// при равенстве сохраняется порядок первого появления.
func (c *pathCounter) MostCommon() [][2]any {
	keys := append([]string(nil), c.order...)
	sort.SliceStable(keys, func(i, j int) bool {
		return c.counts[keys[i]] > c.counts[keys[j]]
	})
	out := make([][2]any, 0, len(keys))
	for _, k := range keys {
		out = append(out, [2]any{k, c.counts[k]})
	}
	return out
}

// BuildParamsReport строит Markdown-обзор схемы сырого JSON-экспорта:
// частоты ключей, полные пути с типами значений и статистику массивов.
func BuildParamsReport(inputPath, outMD string) error {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("не удалось прочитать входной файл: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("не удалось разобрать JSON: %w", err)
	}

	stats := &schemaStats{
		keyCounter:      newPathCounter(),
		pathCounter:     newPathCounter(),
		typeCounter:     map[string]*pathCounter{},
		arrayItemsTotal: map[string]int{},
		arrayContainers: map[string]int{},
	}
	walkSchema(doc, "$", stats)

	var sb strings.Builder
	sb.WriteString("# Параметры JSON экспорта Telegram\n\n")

	sb.WriteString("## Метаданные файла\n\n")
	size := float64(len(data)) / (1024 * 1024)
	shiftStr := "—"
	if shift, ok := exportfile.ParseShift(filepath.Base(inputPath)); ok {
		shiftStr = fmt.Sprintf("%d", shift)
	}
	writeMDTable(&sb, []string{"Поле", "Значение"}, [][]string{
		{"Имя файла", filepath.Base(inputPath)},
		{"Размер, МБ", fmt.Sprintf("%.2f", size)},
		{"Сгенерировано (UTC)", time.Now().UTC().Format("2006-01-02T15:04:05") + "Z"},
		{"Shift к МСК (из имени)", shiftStr},
	})

	sb.WriteString("## Сводка по сообщениям\n\n")
	totalMsgs := stats.pathCounter.Get("$.messages[]")
	replies := stats.pathCounter.Get("$.messages[].reply_to_message_id")
	edited := stats.pathCounter.Get("$.messages[].edited")
	reactions := stats.pathCounter.Get("$.messages[].reactions")
	withPhoto := stats.pathCounter.Get("$.messages[].photo")
	withFile := stats.pathCounter.Get("$.messages[].file")
	writeMDTable(&sb, []string{"Метрика", "Значение"}, [][]string{
		{"Всего сообщений", fmt.Sprintf("%d", totalMsgs)},
		{"Ответы", fmt.Sprintf("%d (%s)", replies, pctString(replies, totalMsgs))},
		{"Отредактированы", fmt.Sprintf("%d (%s)", edited, pctString(edited, totalMsgs))},
		{"С реакциями", fmt.Sprintf("%d (%s)", reactions, pctString(reactions, totalMsgs))},
		{"С фото", fmt.Sprintf("%d", withPhoto)},
		{"С файлами", fmt.Sprintf("%d", withFile)},
	})

	sb.WriteString("## Ключи верхнего уровня (типы)\n\n")
	var rootRows [][]string
	if root, ok := doc.(map[string]any); ok {
		keys := make([]string, 0, len(root))
		for k := range root {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			rootRows = append(rootRows, []string{k, valueTypeName(root[k])})
		}
	}
	writeMDTable(&sb, []string{"Ключ", "Тип"}, rootRows)

	sb.WriteString("## Частота имён ключей\n\n")
	var keyRows [][]string
	for _, kv := range stats.keyCounter.MostCommon() {
		keyRows = append(keyRows, []string{kv[0].(string), fmt.Sprintf("%d", kv[1].(int))})
	}
	writeMDTable(&sb, []string{"Ключ", "Количество"}, keyRows)

	sb.WriteString("## Частота полных путей\n\n")
	var pathRows [][]string
	for _, kv := range stats.pathCounter.MostCommon() {
		p := kv[0].(string)
		pathRows = append(pathRows, []string{p, fmt.Sprintf("%d", kv[1].(int)), typesString(stats.typeCounter[p])})
	}
	writeMDTable(&sb, []string{"Путь", "Количество", "Типы (count)"}, pathRows)

	sb.WriteString("## Пути массивов (occurrences / total items / avg)\n\n")
	arrayPaths := make([]string, 0)
	for _, p := range stats.pathCounter.order {
		if strings.HasSuffix(p, "[]") {
			arrayPaths = append(arrayPaths, p)
		}
	}
	sort.Strings(arrayPaths)
	var arrRows [][]string
	for _, p := range arrayPaths {
		numArrays := stats.arrayContainers[p]
		totalItems := stats.arrayItemsTotal[p]
		avg := "—"
		if numArrays > 0 {
			avg = fmt.Sprintf("%.2f", float64(totalItems)/float64(numArrays))
		}
		arrRows = append(arrRows, []string{
			p,
			fmt.Sprintf("%d", numArrays),
			fmt.Sprintf("%d", stats.pathCounter.Get(p)),
			fmt.Sprintf("%d", totalItems),
			avg,
			typesString(stats.typeCounter[p]),
		})
	}
	writeMDTable(&sb, []string{"Путь", "Списков", "Элементов", "Сумма длин", "Среднее", "Типы/счётчики"}, arrRows)

	sb.WriteString("## Примечания\n\n")
	du := typesString(stats.typeCounter["$.messages[].date_unixtime"])
	eu := typesString(stats.typeCounter["$.messages[].edited_unixtime"])
	if du == "" {
		du = "—"
	}
	if eu == "" {
		eu = "—"
	}
	sb.WriteString("- Количество = число вхождений поля.\n")
	sb.WriteString("- Пути `[]` показывают списки: сколько встретилось контейнеров и суммарно элементов.\n")
	sb.WriteString(fmt.Sprintf("- Типы `date_unixtime`: %s; `edited_unixtime`: %s.\n", du, eu))

	if err := os.MkdirAll(filepath.Dir(outMD), 0o755); err != nil {
		return fmt.Errorf("failed to create report dir: %w", err)
	}
	if err := os.WriteFile(outMD, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outMD, err)
	}
	return nil
}

// walkSchema рекурсивно обходит документ, накапливая частоты ключей,
// полных путей и типов значений. Ключи словарей обходятся в
// отсортированном порядке ради детерминизма.
func walkSchema(obj any, path string, stats *schemaStats) {
	switch v := obj.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			stats.keyCounter.Add(k, 1)
			p := path + "." + k
			stats.pathCounter.Add(p, 1)
			addType(stats, p, v[k])
			walkSchema(v[k], p, stats)
		}
	case []any:
		p := path + "[]"
		stats.arrayContainers[p]++
		stats.arrayItemsTotal[p] += len(v)
		for _, item := range v {
			stats.pathCounter.Add(p, 1)
			addType(stats, p, item)
			walkSchema(item, p, stats)
		}
	}
}

func addType(stats *schemaStats, path string, v any) {
	if stats.typeCounter[path] == nil {
		stats.typeCounter[path] = newPathCounter()
	}
	stats.typeCounter[path].Add(valueTypeName(v), 1)
}

// valueTypeName возвращает имя типа в терминах JSON-схемы.
func valueTypeName(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case bool:
		return "bool"
	case json.Number:
		if !strings.ContainsAny(t.String(), ".eE") {
			return "int"
		}
		return "float"
	case float64:
		return "float"
	case string:
		return "str"
	case []any:
		return "list"
	case map[string]any:
		return "dict"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func typesString(c *pathCounter) string {
	if c == nil {
		return ""
	}
	parts := make([]string, 0, len(c.order))
	for _, kv := range c.MostCommon() {
		parts = append(parts, fmt.Sprintf("%s:%d", kv[0], kv[1]))
	}
	return strings.Join(parts, ", ")
}

func pctString(part, total int) string {
	if total == 0 {
		return "0.00%"
	}
	return fmt.Sprintf("%.2f%%", float64(part)/float64(total)*100)
}

// writeMDTable печатает Markdown-таблицу с заголовком и строками.
func writeMDTable(sb *strings.Builder, headers []string, rows [][]string) {
	sb.WriteString("| " + strings.Join(headers, " | ") + " |\n")
	sep := make([]string, len(headers))
	for i := range sep {
		sep[i] = "---"
	}
	sb.WriteString("| " + strings.Join(sep, " | ") + " |\n")
	for _, r := range rows {
		sb.WriteString("| " + strings.Join(r, " | ") + " |\n")
	}
	sb.WriteString("\n")
}
