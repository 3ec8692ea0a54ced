package report

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"telegram-chat-analyzer/internal/domain"
)

func excelExport() *domain.Export {
	return &domain.Export{
		ChatID: "chat1",
		Messages: []domain.Message{
			{
				ID: 1, HasID: true, Type: "message", FromID: "user1", From: "Алиса",
				Norm: domain.MetaNorm{DateNorm: "2024-01-15T10:00:00+03:00"},
			},
			{
				ID: 2, HasID: true, Type: "message", FromID: "user1", From: "Алиса",
				Norm: domain.MetaNorm{DateNorm: "2024-01-16T11:00:00+03:00", MediaCat: "photo"},
			},
			{
				ID: 3, HasID: true, Type: "message", FromID: "user2", From: "Боб",
				Norm: domain.MetaNorm{DateNorm: "2024-01-16T23:30:00+03:00"},
			},
			// Сервисная запись: не учитывается.
			{
				ID: 4, HasID: true, Type: "service", FromID: "svc",
				Norm: domain.MetaNorm{DateNorm: "2024-01-16T12:00:00+03:00"},
			},
			// Без даты: аномалия.
			{ID: 5, HasID: true, Type: "message", FromID: "user1"},
		},
	}
}

func TestExcelBuilder_Build(t *testing.T) {
	t.Run("Книга собирается со всеми листами", func(t *testing.T) {
		outPath := filepath.Join(t.TempDir(), "report.xlsx")
		src := domain.SourceRef{Path: "/tmp/export[0].json", Name: "export[0].json"}

		if err := NewExcelBuilder().Build(excelExport(), src, outPath); err != nil {
			t.Fatalf("Неожиданная ошибка: %v", err)
		}

		f, err := excelize.OpenFile(outPath)
		if err != nil {
			t.Fatalf("Файл должен открываться: %v", err)
		}
		defer f.Close()

		sheets := f.GetSheetList()
		for _, want := range []string{"Активности", "Топы", "Медиа", "Молчуны", "Общее"} {
			found := false
			for _, s := range sheets {
				if s == want {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("Отсутствует лист %q, есть: %v", want, sheets)
			}
		}
		for _, s := range sheets {
			if s == "Sheet1" {
				t.Error("Лист по умолчанию Sheet1 должен быть удален")
			}
		}
	})

	t.Run("Топы отсортированы по убыванию сообщений", func(t *testing.T) {
		outPath := filepath.Join(t.TempDir(), "report.xlsx")

		if err := NewExcelBuilder().Build(excelExport(), domain.SourceRef{}, outPath); err != nil {
			t.Fatalf("Неожиданная ошибка: %v", err)
		}

		f, err := excelize.OpenFile(outPath)
		if err != nil {
			t.Fatal(err)
		}
		defer f.Close()

		rows, err := f.GetRows("Топы")
		if err != nil {
			t.Fatal(err)
		}
		// Строка 1 — заголовок раздела, строка 2 — шапка таблицы.
		if len(rows) < 4 {
			t.Fatalf("Ожидалось минимум 4 строки, получено %d", len(rows))
		}
		if rows[2][0] != "user1" || rows[2][2] != "2" {
			t.Errorf("Первым должен идти user1 с 2 сообщениями, получено %v", rows[2])
		}
		if rows[3][0] != "user2" {
			t.Errorf("Вторым должен идти user2, получено %v", rows[3])
		}
	})

	t.Run("Медиа-счетчики попадают на свой лист", func(t *testing.T) {
		outPath := filepath.Join(t.TempDir(), "report.xlsx")

		if err := NewExcelBuilder().Build(excelExport(), domain.SourceRef{}, outPath); err != nil {
			t.Fatalf("Неожиданная ошибка: %v", err)
		}

		f, err := excelize.OpenFile(outPath)
		if err != nil {
			t.Fatal(err)
		}
		defer f.Close()

		rows, err := f.GetRows("Медиа")
		if err != nil {
			t.Fatal(err)
		}
		foundPhoto := false
		for _, r := range rows {
			if len(r) >= 2 && r[0] == "photo" && r[1] == "1" {
				foundPhoto = true
			}
		}
		if !foundPhoto {
			t.Error("Категория photo со счетчиком 1 должна присутствовать на листе Медиа")
		}
	})

	t.Run("Пустой экспорт — ошибка", func(t *testing.T) {
		outPath := filepath.Join(t.TempDir(), "report.xlsx")
		err := NewExcelBuilder().Build(&domain.Export{}, domain.SourceRef{}, outPath)
		if err == nil {
			t.Error("Ожидалась ошибка для экспорта без сообщений")
		}
	})
}

func TestChooseDisplayName(t *testing.T) {
	t.Run("Выбирается самое частое имя", func(t *testing.T) {
		names := map[string]int{"Старое имя": 1, "Новое имя": 5}
		if got := chooseDisplayName(names); got != "Новое имя" {
			t.Errorf("Ожидалось 'Новое имя', получено %q", got)
		}
	})

	t.Run("При равенстве — лексикографически первое", func(t *testing.T) {
		names := map[string]int{"Боб": 2, "Алиса": 2}
		if got := chooseDisplayName(names); got != "Алиса" {
			t.Errorf("Ожидалось 'Алиса', получено %q", got)
		}
	})

	t.Run("Нет имен — пустая строка", func(t *testing.T) {
		if got := chooseDisplayName(nil); got != "" {
			t.Errorf("Ожидалась пустая строка, получено %q", got)
		}
	})
}

func TestDaysBetween(t *testing.T) {
	cases := []struct {
		from, to string
		want     int
	}{
		{"2024-01-15", "2024-01-16", 1},
		{"2024-01-15", "2024-01-15", 0},
		{"2024-01-01", "2024-02-01", 31},
	}
	for _, tc := range cases {
		if got := daysBetween(tc.from, tc.to); got != tc.want {
			t.Errorf("daysBetween(%s, %s): ожидалось %d, получено %d", tc.from, tc.to, tc.want, got)
		}
	}
}
