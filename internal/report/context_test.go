package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"telegram-chat-analyzer/internal/domain"
)

func contextExport() *domain.Export {
	return &domain.Export{
		ChatID: "chat1",
		Messages: []domain.Message{
			{
				ID: 1, HasID: true, Type: "message", FromID: "user1", From: "Алиса",
				Norm: domain.MetaNorm{DateNorm: "2024-01-15T10:00:00+03:00", TextPlain: "привет"},
			},
			{
				ID: 2, HasID: true, Type: "message", FromID: "user1", From: "Алиса",
				Norm: domain.MetaNorm{DateNorm: "2024-01-15T10:03:00+03:00", TextPlain: "как дела"},
			},
			{
				ID: 3, HasID: true, Type: "message", FromID: "user2", From: "Боб",
				Norm: domain.MetaNorm{DateNorm: "2024-01-15T10:04:00+03:00", TextPlain: "нормально"},
			},
			{
				ID: 4, HasID: true, Type: "message", FromID: "user1", From: "Алиса",
				Norm: domain.MetaNorm{DateNorm: "2024-01-15T10:30:00+03:00", TextPlain: "позже"},
			},
			// Пустой текст: пропускается.
			{
				ID: 5, HasID: true, Type: "message", FromID: "user1", From: "Алиса",
				Norm: domain.MetaNorm{DateNorm: "2024-01-15T10:31:00+03:00", TextPlain: "   "},
			},
			// Вне периода.
			{
				ID: 6, HasID: true, Type: "message", FromID: "user2", From: "Боб",
				Norm: domain.MetaNorm{DateNorm: "2024-01-16T09:00:00+03:00", TextPlain: "завтра"},
			},
			// Нет разобранной даты: пропускается.
			{ID: 7, HasID: true, Type: "message", FromID: "user2", From: "Боб",
				Norm: domain.MetaNorm{TextPlain: "без даты"}},
		},
	}
}

func TestParseContextRange(t *testing.T) {
	now := time.Date(2024, 1, 16, 12, 0, 0, 0, time.UTC)

	t.Run("Аргумент -1 дает вчерашний день", func(t *testing.T) {
		start, end, err := ParseContextRange("-1", now)
		if err != nil {
			t.Fatalf("Неожиданная ошибка: %v", err)
		}
		if start.Format("2006-01-02 15:04:05") != "2024-01-15 00:00:00" {
			t.Errorf("Неожиданное начало периода: %v", start)
		}
		if end.Day() != 15 || end.Hour() != 23 {
			t.Errorf("Конец периода должен быть в пределах 15-го числа: %v", end)
		}
	})

	t.Run("Одна дата покрывает весь день", func(t *testing.T) {
		start, end, err := ParseContextRange("2024-01-15", now)
		if err != nil {
			t.Fatalf("Неожиданная ошибка: %v", err)
		}
		if start.Hour() != 0 || end.Hour() != 23 || end.Minute() != 59 {
			t.Errorf("Период должен покрывать день целиком: %v .. %v", start, end)
		}
	})

	t.Run("Период разбирается по подчеркиванию", func(t *testing.T) {
		start, end, err := ParseContextRange("2024-01-10_2024-01-15", now)
		if err != nil {
			t.Fatalf("Неожиданная ошибка: %v", err)
		}
		if start.Day() != 10 || end.Day() != 15 {
			t.Errorf("Неожиданные границы периода: %v .. %v", start, end)
		}
	})

	t.Run("Перевернутый период дает ошибку", func(t *testing.T) {
		if _, _, err := ParseContextRange("2024-01-15_2024-01-10", now); err == nil {
			t.Error("Ожидалась ошибка: начало позже конца")
		}
	})

	t.Run("Мусор вместо даты дает ошибку", func(t *testing.T) {
		if _, _, err := ParseContextRange("вчера", now); err == nil {
			t.Error("Ожидалась ошибка формата даты")
		}
	})
}

func TestBuildContextReport(t *testing.T) {
	t.Run("Сообщения одного автора с малым интервалом образуют одну стену", func(t *testing.T) {
		outDir := t.TempDir()
		path, err := BuildContextReport(contextExport(), outDir, "2024-01-15")
		if err != nil {
			t.Fatalf("Неожиданная ошибка: %v", err)
		}
		if filepath.Base(path) != "context_2024-01-15.txt" {
			t.Errorf("Неожиданное имя файла: %s", filepath.Base(path))
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		txt := string(data)

		// Первые два сообщения Алисы идут с интервалом 3 минуты: один заголовок.
		if strings.Count(txt, "Алиса [") != 2 {
			t.Errorf("Ожидалось 2 блока Алисы, отчет:\n%s", txt)
		}
		if !strings.HasPrefix(txt, "Алиса [2024-01-15 10:00:00]\n\"привет\"\n\"как дела\"\n\n") {
			t.Errorf("Неожиданное начало отчета:\n%s", txt)
		}
		if !strings.Contains(txt, "Боб [2024-01-15 10:04:00]\n\"нормально\"\n") {
			t.Errorf("Отсутствует блок Боба:\n%s", txt)
		}
		// Сообщение через полчаса открывает новую стену.
		if !strings.Contains(txt, "Алиса [2024-01-15 10:30:00]\n\"позже\"\n") {
			t.Errorf("Отсутствует вторая стена Алисы:\n%s", txt)
		}
	})

	t.Run("Пустой текст, чужие даты и сообщения без даты не попадают в дамп", func(t *testing.T) {
		outDir := t.TempDir()
		path, err := BuildContextReport(contextExport(), outDir, "2024-01-15")
		if err != nil {
			t.Fatalf("Неожиданная ошибка: %v", err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		txt := string(data)
		for _, absent := range []string{"завтра", "без даты", "   "} {
			if strings.Contains(txt, "\""+absent+"\"") {
				t.Errorf("Текст %q не должен попадать в дамп", absent)
			}
		}
	})

	t.Run("Период склеивает несколько дней в один файл", func(t *testing.T) {
		outDir := t.TempDir()
		path, err := BuildContextReport(contextExport(), outDir, "2024-01-15_2024-01-16")
		if err != nil {
			t.Fatalf("Неожиданная ошибка: %v", err)
		}
		if filepath.Base(path) != "context_2024-01-15_to_2024-01-16.txt" {
			t.Errorf("Неожиданное имя файла: %s", filepath.Base(path))
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(data), "\"завтра\"") {
			t.Error("Сообщение второго дня должно попасть в период")
		}
	})

	t.Run("Пустой период дает пустой файл без ошибки", func(t *testing.T) {
		outDir := t.TempDir()
		path, err := BuildContextReport(contextExport(), outDir, "2020-01-01")
		if err != nil {
			t.Fatalf("Неожиданная ошибка: %v", err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if len(data) != 0 {
			t.Errorf("Ожидался пустой файл, получено:\n%s", data)
		}
	})

	t.Run("Автор без имени получает заглушку Unknown", func(t *testing.T) {
		export := &domain.Export{
			Messages: []domain.Message{
				{ID: 1, HasID: true, Type: "message", FromID: "u42",
					Norm: domain.MetaNorm{DateNorm: "2024-01-15T10:00:00+03:00", TextPlain: "кто я"}},
			},
		}
		outDir := t.TempDir()
		path, err := BuildContextReport(export, outDir, "2024-01-15")
		if err != nil {
			t.Fatalf("Неожиданная ошибка: %v", err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.HasPrefix(string(data), "Unknown [") {
			t.Errorf("Ожидалось имя-заглушка:\n%s", data)
		}
	})
}
