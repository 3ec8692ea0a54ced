package report

import (
	"encoding/json"
	"os"
	"strings"
	"testing"

	"telegram-chat-analyzer/internal/domain"
)

func authorTextExport() *domain.Export {
	return &domain.Export{
		ChatID: "chat1",
		Messages: []domain.Message{
			{
				ID: 1, HasID: true, Type: "message", FromID: "user1", From: "Алиса",
				Norm: domain.MetaNorm{DateNorm: "2024-01-15T10:00:00+03:00", TextPlain: "первое"},
			},
			{
				ID: 2, HasID: true, Type: "message", FromID: "user2", From: "Боб",
				Norm: domain.MetaNorm{DateNorm: "2024-01-15T11:00:00+03:00", TextPlain: "ответ"},
			},
			{
				ID: 3, HasID: true, Type: "message", FromID: "user1", From: "Алиса",
				Norm: domain.MetaNorm{DateNorm: "2024-01-15T12:00:00+03:00", TextPlain: "второе"},
			},
			// Нет ни даты, ни текста: пропускается.
			{ID: 4, HasID: true, Type: "message", FromID: "user1"},
			// Нет автора: пропускается.
			{
				ID: 5, HasID: true, Type: "message",
				Norm: domain.MetaNorm{DateNorm: "2024-01-15T13:00:00+03:00", TextPlain: "аноним"},
			},
		},
	}
}

func TestBuildAuthorTextReport(t *testing.T) {
	t.Run("JSON содержит топ авторов и их сообщения", func(t *testing.T) {
		outDir := t.TempDir()
		src := domain.SourceRef{Path: "/tmp/export[0].json", Name: "export[0].json"}

		jsonPath, txtPath, err := BuildAuthorTextReport(authorTextExport(), src, outDir)
		if err != nil {
			t.Fatalf("Неожиданная ошибка: %v", err)
		}

		data, err := os.ReadFile(jsonPath)
		if err != nil {
			t.Fatal(err)
		}
		var doc map[string]any
		if err := json.Unmarshal(data, &doc); err != nil {
			t.Fatalf("Отчет должен быть валидным JSON: %v", err)
		}

		if doc["chat_id"] != "chat1" {
			t.Errorf("Ожидался chat_id 'chat1', получено %v", doc["chat_id"])
		}
		if doc["source_file_name"] != "export[0].json" {
			t.Errorf("Неожиданный source_file_name: %v", doc["source_file_name"])
		}

		top, ok := doc["top_authors"].(map[string]any)
		if !ok {
			t.Fatal("Ожидался блок top_authors")
		}
		alisa, ok := top["Алиса"].(map[string]any)
		if !ok {
			t.Fatal("Алиса должна присутствовать в top_authors")
		}
		if alisa["count_message"] != 2.0 {
			t.Errorf("Ожидалось 2 сообщения у Алисы, получено %v", alisa["count_message"])
		}

		msgs, ok := doc["user1"].(map[string]any)
		if !ok {
			t.Fatal("Ожидался блок сообщений user1")
		}
		if len(msgs) != 2 {
			t.Errorf("Ожидалось 2 сообщения user1, получено %d", len(msgs))
		}
		first, ok := msgs["1"].(map[string]any)
		if !ok || first["text"] != "первое" {
			t.Errorf("Неожиданное сообщение с id=1: %v", msgs["1"])
		}

		if _, err := os.Stat(txtPath); err != nil {
			t.Errorf("TXT-файл должен существовать: %v", err)
		}
	})

	t.Run("TXT упорядочен по убыванию активности", func(t *testing.T) {
		outDir := t.TempDir()
		_, txtPath, err := BuildAuthorTextReport(authorTextExport(), domain.SourceRef{}, outDir)
		if err != nil {
			t.Fatalf("Неожиданная ошибка: %v", err)
		}

		data, err := os.ReadFile(txtPath)
		if err != nil {
			t.Fatal(err)
		}
		txt := string(data)

		if !strings.HasPrefix(txt, "ТОП ПОЛЬЗОВАТЕЛЕЙ ПО СООБЩЕНИЯМ\n1. Алиса (2)\n2. Боб (1)\n") {
			t.Errorf("Неожиданное начало TXT-отчета:\n%s", txt[:min(len(txt), 200)])
		}
		if !strings.Contains(txt, "=== ВСЕ СООБЩЕНИЯ ВСЕХ ===") {
			t.Error("Отсутствует разделитель полного дампа")
		}
		// Тексты идут в порядке возрастания id.
		if strings.Index(txt, "\"первое\"") > strings.Index(txt, "\"второе\"") {
			t.Error("Сообщения автора должны идти по возрастанию id")
		}
	})

	t.Run("Коллизия отображаемых имен разрешается суффиксом", func(t *testing.T) {
		export := &domain.Export{
			ChatID: "chat1",
			Messages: []domain.Message{
				{
					ID: 1, HasID: true, FromID: "user111111111", From: "Тезка",
					Norm: domain.MetaNorm{TextPlain: "a"},
				},
				{
					ID: 2, HasID: true, FromID: "user222222222", From: "Тезка",
					Norm: domain.MetaNorm{TextPlain: "b"},
				},
			},
		}

		outDir := t.TempDir()
		jsonPath, _, err := BuildAuthorTextReport(export, domain.SourceRef{}, outDir)
		if err != nil {
			t.Fatalf("Неожиданная ошибка: %v", err)
		}

		data, err := os.ReadFile(jsonPath)
		if err != nil {
			t.Fatal(err)
		}
		var doc map[string]any
		if err := json.Unmarshal(data, &doc); err != nil {
			t.Fatal(err)
		}
		top := doc["top_authors"].(map[string]any)
		if len(top) != 2 {
			t.Fatalf("Оба тезки должны попасть в top_authors, получено %d", len(top))
		}
		if _, ok := top["Тезка"]; !ok {
			t.Error("Первый тезка сохраняет исходное имя")
		}
		if _, ok := top["Тезка (user2222)"]; !ok {
			t.Errorf("Второй тезка должен получить суффикс, ключи: %v", keysOf(top))
		}
	})

	t.Run("Автор без имени получает заглушку Unknown", func(t *testing.T) {
		export := &domain.Export{
			Messages: []domain.Message{
				{ID: 1, HasID: true, FromID: "u42", Norm: domain.MetaNorm{TextPlain: "x"}},
			},
		}

		outDir := t.TempDir()
		jsonPath, _, err := BuildAuthorTextReport(export, domain.SourceRef{}, outDir)
		if err != nil {
			t.Fatalf("Неожиданная ошибка: %v", err)
		}

		data, err := os.ReadFile(jsonPath)
		if err != nil {
			t.Fatal(err)
		}
		var doc map[string]any
		if err := json.Unmarshal(data, &doc); err != nil {
			t.Fatal(err)
		}
		top := doc["top_authors"].(map[string]any)
		if _, ok := top["Unknown (u42)"]; !ok {
			t.Errorf("Ожидалось имя-заглушка, ключи: %v", keysOf(top))
		}
	})
}

func keysOf(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
