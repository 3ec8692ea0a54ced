package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBuildParamsReport(t *testing.T) {
	t.Run("Отчет строится по реальному экспорту", func(t *testing.T) {
		dir := t.TempDir()
		input := filepath.Join(dir, "export[+3].json")
		content := `{
			"name": "Тестовый чат",
			"id": 12345,
			"type": "private_supergroup",
			"messages": [
				{"id": 1, "type": "message", "date": "2024-01-15T10:00:00", "from": "Алиса", "from_id": "user1", "text": "привет"},
				{"id": 2, "type": "message", "date": "2024-01-15T11:00:00", "from": "Боб", "from_id": "user2", "text": "привет", "photo": "photos/1.jpg"},
				{"id": 3, "type": "service", "date": "2024-01-15T12:00:00", "action": "invite_members"}
			]
		}`
		if err := os.WriteFile(input, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}

		outMD := filepath.Join(dir, "params.md")
		if err := BuildParamsReport(input, outMD); err != nil {
			t.Fatalf("Неожиданная ошибка: %v", err)
		}

		data, err := os.ReadFile(outMD)
		if err != nil {
			t.Fatal(err)
		}
		md := string(data)

		for _, want := range []string{
			"export[+3].json",
			"$.messages[]",
			"$.messages[].photo",
			"Ключи верхнего уровня",
			"Частота имён ключей",
			"| date |",
		} {
			if !strings.Contains(md, want) {
				t.Errorf("В отчете не найдено %q", want)
			}
		}

		// Сдвиг из имени файла попадает в метаданные.
		if !strings.Contains(md, "| Shift к МСК (из имени) | 3 |") {
			t.Error("Сдвиг из имени файла должен присутствовать в отчете")
		}
	})

	t.Run("Битый JSON — ошибка", func(t *testing.T) {
		dir := t.TempDir()
		input := filepath.Join(dir, "broken.json")
		if err := os.WriteFile(input, []byte("{не json"), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := BuildParamsReport(input, filepath.Join(dir, "out.md")); err == nil {
			t.Error("Ожидалась ошибка для битого JSON")
		}
	})

	t.Run("Несуществующий файл — ошибка", func(t *testing.T) {
		dir := t.TempDir()
		if err := BuildParamsReport(filepath.Join(dir, "nope.json"), filepath.Join(dir, "out.md")); err == nil {
			t.Error("Ожидалась ошибка для отсутствующего файла")
		}
	})
}

func TestPathCounter(t *testing.T) {
	t.Run("MostCommon стабилен при равных счетчиках", func(t *testing.T) {
		c := newPathCounter()
		c.Add("b", 1)
		c.Add("a", 1)
		c.Add("c", 3)

		got := c.MostCommon()
		if got[0][0] != "c" {
			t.Errorf("Ожидался 'c' первым, получено %v", got[0][0])
		}
		if got[1][0] != "b" || got[2][0] != "a" {
			t.Errorf("При равенстве ожидался порядок появления [b, a], получено [%v, %v]",
				got[1][0], got[2][0])
		}
	})
}

func TestValueTypeName(t *testing.T) {
	cases := []struct {
		name string
		v    any
		want string
	}{
		{"Строка", "text", "str"},
		{"Булево", true, "bool"},
		{"Ничего", nil, "null"},
		{"Объект", map[string]any{}, "dict"},
		{"Массив", []any{}, "list"},
		{"Целое число", json.Number("42"), "int"},
		{"Дробное число", json.Number("1.5"), "float"},
		{"Экспонента", json.Number("1e9"), "float"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := valueTypeName(tc.v); got != tc.want {
				t.Errorf("Ожидалось %q, получено %q", tc.want, got)
			}
		})
	}
}
