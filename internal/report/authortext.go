package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"telegram-chat-analyzer/internal/domain"
)

// authorTextMessage — одно сообщение в отчете "авторы и тексты".
type authorTextMessage struct {
	ID   int    `json:"id"`
	Date string `json:"date"`
	Text string `json:"text"`
}

// authorSummary — сводка по автору в блоке top_authors.
type authorSummary struct {
	ID           string `json:"id"`
	CountMessage int    `json:"count_message"`
}

// BuildAuthorTextReport строит два отчета из нормализованного экспорта:
// JSON (авторы со всеми их сообщениями) и TXT (плоский дамп текстов).
// Возвращает пути к записанным файлам.
func BuildAuthorTextReport(export *domain.Export, src domain.SourceRef, outDir string) (string, string, error) {
	authorCounts := map[string]int{}
	authorOrder := []string{}
	authorNames := map[string]string{}
	messagesByUser := map[string]map[string]authorTextMessage{}

	for i := range export.Messages {
		m := &export.Messages[i]
		if m.Norm.DateNorm == "" && m.Norm.TextPlain == "" {
			continue
		}
		if m.FromID == "" {
			continue
		}

		if _, ok := authorNames[m.FromID]; !ok {
			name := m.From
			if name == "" {
				name = fmt.Sprintf("Unknown (%s)", m.FromID)
			}
			authorNames[m.FromID] = name
			authorOrder = append(authorOrder, m.FromID)
		}
		authorCounts[m.FromID]++

		if messagesByUser[m.FromID] == nil {
			messagesByUser[m.FromID] = map[string]authorTextMessage{}
		}
		messagesByUser[m.FromID][strconv.Itoa(m.ID)] = authorTextMessage{
			ID:   m.ID,
			Date: m.Norm.DateNorm,
			Text: m.Norm.TextPlain,
		}
	}

	// Сортировка авторов: по убыванию сообщений, при равенстве —
	// в порядке первого появления.
	sortedIDs := append([]string(nil), authorOrder...)
	sort.SliceStable(sortedIDs, func(i, j int) bool {
		return authorCounts[sortedIDs[i]] > authorCounts[sortedIDs[j]]
	})

	topAuthors := map[string]authorSummary{}
	for _, id := range sortedIDs {
		name := authorNames[id]
		// Коллизия имен разрешается суффиксом с префиксом from_id.
		if _, taken := topAuthors[name]; taken {
			short := id
			if len(short) > 8 {
				short = short[:8]
			}
			name = fmt.Sprintf("%s (%s)", authorNames[id], short)
		}
		topAuthors[name] = authorSummary{ID: id, CountMessage: authorCounts[id]}
	}

	absPath, err := filepath.Abs(src.Path)
	if err != nil {
		absPath = src.Path
	}
	doc := map[string]any{
		"chat_id":              export.ChatID,
		"source_file_path":     absPath,
		"source_file_name":     src.Name,
		"generation_timestamp": time.Now().Unix(),
		"top_authors":          topAuthors,
	}
	for id, msgs := range messagesByUser {
		doc[id] = msgs
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", "", fmt.Errorf("failed to create output dir %s: %w", outDir, err)
	}

	jsonPath := filepath.Join(outDir, "author_text.json")
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return "", "", fmt.Errorf("failed to encode author report: %w", err)
	}
	if err := os.WriteFile(jsonPath, buf.Bytes(), 0o644); err != nil {
		return "", "", fmt.Errorf("failed to write %s: %w", jsonPath, err)
	}

	txtPath := filepath.Join(outDir, "author_text.txt")
	if err := os.WriteFile(txtPath, []byte(buildAuthorTextTXT(sortedIDs, authorNames, authorCounts, messagesByUser)), 0o644); err != nil {
		return "", "", fmt.Errorf("failed to write %s: %w", txtPath, err)
	}

	return jsonPath, txtPath, nil
}

func buildAuthorTextTXT(
	sortedIDs []string,
	authorNames map[string]string,
	authorCounts map[string]int,
	messagesByUser map[string]map[string]authorTextMessage,
) string {
	var sb strings.Builder
	sb.WriteString("ТОП ПОЛЬЗОВАТЕЛЕЙ ПО СООБЩЕНИЯМ\n")
	for i, id := range sortedIDs {
		fmt.Fprintf(&sb, "%d. %s (%d)\n", i+1, authorNames[id], authorCounts[id])
	}

	sb.WriteString("\n=== ВСЕ СООБЩЕНИЯ ВСЕХ ===\n")
	for i, id := range sortedIDs {
		fmt.Fprintf(&sb, "%d. %s (%d)\n", i+1, authorNames[id], authorCounts[id])

		msgs := messagesByUser[id]
		ids := make([]int, 0, len(msgs))
		for k := range msgs {
			if n, err := strconv.Atoi(k); err == nil {
				ids = append(ids, n)
			}
		}
		sort.Ints(ids)
		for _, mid := range ids {
			fmt.Fprintf(&sb, "\"%s\"\n", msgs[strconv.Itoa(mid)].Text)
		}
		sb.WriteString("\n\n")
	}
	return sb.String()
}
