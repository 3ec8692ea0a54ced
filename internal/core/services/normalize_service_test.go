package services

import (
	"testing"

	"telegram-chat-analyzer/internal/domain"
)

func TestFlattenText(t *testing.T) {
	t.Run("Строка проходит как есть", func(t *testing.T) {
		if got := FlattenText("привет мир"); got != "привет мир" {
			t.Errorf("Ожидалось 'привет мир', получено %q", got)
		}
	})

	t.Run("Список фрагментов конкатенируется", func(t *testing.T) {
		v := []any{
			"обычный ",
			map[string]any{"type": "bold", "text": "жирный"},
			" хвост",
		}
		if got := FlattenText(v); got != "обычный жирный хвост" {
			t.Errorf("Ожидалось 'обычный жирный хвост', получено %q", got)
		}
	})

	t.Run("Фрагменты без поля text пропускаются", func(t *testing.T) {
		v := []any{map[string]any{"type": "custom_emoji"}, "x", 42.0}
		if got := FlattenText(v); got != "x" {
			t.Errorf("Ожидалось 'x', получено %q", got)
		}
	})

	t.Run("Неожиданный тип дает пустую строку", func(t *testing.T) {
		if got := FlattenText(12.5); got != "" {
			t.Errorf("Ожидалась пустая строка, получено %q", got)
		}
	})
}

func TestCategorizeMedia(t *testing.T) {
	cases := []struct {
		name string
		msg  map[string]any
		want string
	}{
		{"animation -> animation (GIF)", map[string]any{"media_type": "animation"}, "animation (GIF)"},
		{"video_file -> video", map[string]any{"media_type": "video_file"}, "video"},
		{"file -> document", map[string]any{"media_type": "file"}, "document"},
		{"Неизвестный media_type -> other", map[string]any{"media_type": "hologram"}, "other"},
		{"poll без media_type", map[string]any{"poll": map[string]any{"question": "?"}}, "poll"},
		{"sticker_emoji без media_type", map[string]any{"sticker_emoji": "😀"}, "sticker"},
		{"photo без media_type", map[string]any{"photo": "photos/1.jpg"}, "photo"},
		{"Сообщение без медиа", map[string]any{"text": "hi"}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := categorizeMedia(tc.msg); got != tc.want {
				t.Errorf("Ожидалось %q, получено %q", tc.want, got)
			}
		})
	}

	t.Run("media_type имеет приоритет над эвристиками", func(t *testing.T) {
		msg := map[string]any{
			"media_type":    "voice_message",
			"sticker_emoji": "😀",
			"photo":         "photos/1.jpg",
		}
		if got := categorizeMedia(msg); got != "voice_message" {
			t.Errorf("Ожидалось 'voice_message', получено %q", got)
		}
	})
}

func TestNormalize(t *testing.T) {
	t.Run("Сдвиг применяется и документируется в смещении", func(t *testing.T) {
		raw := &domain.RawExport{
			Root: map[string]any{"id": "chat1"},
			Messages: []map[string]any{
				{"id": 1.0, "type": "message", "date": "2024-01-15T22:30:00", "from_id": "user1", "text": "hi"},
			},
		}
		raw.Root["messages"] = []any{}

		export, err := NewNormalizeService(nil).Normalize(raw, 3)
		if err != nil {
			t.Fatalf("Неожиданная ошибка: %v", err)
		}

		got := export.Messages[0].Norm.DateNorm
		want := "2024-01-16T01:30:00+03:00"
		if got != want {
			t.Errorf("Ожидалось %q, получено %q", want, got)
		}
	})

	t.Run("Нормализация аддитивна: сырые поля не меняются", func(t *testing.T) {
		msg := map[string]any{
			"id": 1.0, "type": "message",
			"date": "2024-01-15T10:00:00", "from_id": "user1", "text": "hi",
		}
		raw := &domain.RawExport{Root: map[string]any{}, Messages: []map[string]any{msg}}

		if _, err := NewNormalizeService(nil).Normalize(raw, 0); err != nil {
			t.Fatalf("Неожиданная ошибка: %v", err)
		}

		if msg["date"] != "2024-01-15T10:00:00" {
			t.Errorf("Сырое поле date изменилось: %v", msg["date"])
		}
		norm, ok := msg["meta_norm"].(map[string]any)
		if !ok {
			t.Fatal("Ожидался блок meta_norm в сыром сообщении")
		}
		if norm["date_norm"] != "2024-01-15T10:00:00+00:00" {
			t.Errorf("Неожиданный date_norm: %v", norm["date_norm"])
		}
	})

	t.Run("Битая дата дает null, не прерывая прогон", func(t *testing.T) {
		raw := &domain.RawExport{
			Root: map[string]any{},
			Messages: []map[string]any{
				{"id": 1.0, "type": "message", "date": "мусор", "from_id": "u1"},
				{"id": 2.0, "type": "message", "date": "2024-01-15T10:00:00", "from_id": "u1"},
			},
		}

		export, err := NewNormalizeService(nil).Normalize(raw, 0)
		if err != nil {
			t.Fatalf("Неожиданная ошибка: %v", err)
		}
		if export.Messages[0].Norm.DateNorm != "" {
			t.Errorf("Ожидался пустой date_norm для битой даты, получено %q", export.Messages[0].Norm.DateNorm)
		}
		if export.Messages[1].Norm.DateNorm == "" {
			t.Error("Соседнее валидное сообщение должно быть нормализовано")
		}
		if norm := raw.Messages[0]["meta_norm"].(map[string]any); norm["date_norm"] != nil {
			t.Errorf("В сыром блоке ожидался null, получено %v", norm["date_norm"])
		}
	})

	t.Run("edited_unixtime приоритетнее edited", func(t *testing.T) {
		raw := &domain.RawExport{
			Root: map[string]any{},
			Messages: []map[string]any{
				{
					"id": 1.0, "type": "message",
					"date":            "2024-01-15T10:00:00",
					"edited":          "2024-01-15T11:00:00",
					"edited_unixtime": "1705312800", // 2024-01-15T10:00:00 UTC
				},
			},
		}

		export, err := NewNormalizeService(nil).Normalize(raw, 0)
		if err != nil {
			t.Fatalf("Неожиданная ошибка: %v", err)
		}
		if got := export.Messages[0].Norm.EditedNorm; got != "2024-01-15T10:00:00+00:00" {
			t.Errorf("Ожидался edited_norm из unixtime, получено %q", got)
		}
	})

	t.Run("Запись аудита добавляется в meta", func(t *testing.T) {
		raw := &domain.RawExport{
			Root: map[string]any{},
			Messages: []map[string]any{
				{"id": 1.0, "type": "message", "date": "2024-01-15T10:00:00"},
			},
		}

		export, err := NewNormalizeService(nil).Normalize(raw, 5)
		if err != nil {
			t.Fatalf("Неожиданная ошибка: %v", err)
		}

		if len(export.Meta) != 1 || export.Meta[0].ByNormalize == nil {
			t.Fatal("Ожидалась одна запись by_normalize")
		}
		if export.Meta[0].ByNormalize.AppliedShiftHours != 5 {
			t.Errorf("Ожидался сдвиг 5, получено %d", export.Meta[0].ByNormalize.AppliedShiftHours)
		}
		if export.Meta[0].ByNormalize.MessagesWithDateNorm != 1 {
			t.Errorf("Ожидался счетчик 1, получено %d", export.Meta[0].ByNormalize.MessagesWithDateNorm)
		}

		meta, ok := raw.Root["meta"].([]any)
		if !ok || len(meta) != 1 {
			t.Fatalf("В сыром документе ожидался массив meta из 1 записи, получено %v", raw.Root["meta"])
		}
	})

	t.Run("Повторная нормализация дописывает вторую запись", func(t *testing.T) {
		raw := &domain.RawExport{Root: map[string]any{}, Messages: nil}
		svc := NewNormalizeService(nil)
		if _, err := svc.Normalize(raw, 3); err != nil {
			t.Fatal(err)
		}
		if _, err := svc.Normalize(raw, 0); err != nil {
			t.Fatal(err)
		}
		if meta := raw.Root["meta"].([]any); len(meta) != 2 {
			t.Errorf("Ожидалось 2 записи meta, получено %d", len(meta))
		}
	})
}

func TestProjectExport(t *testing.T) {
	t.Run("Сохраненный meta_norm читается без пересчета", func(t *testing.T) {
		raw := &domain.RawExport{
			Root: map[string]any{
				"id": "chat1",
				"meta": []any{
					map[string]any{"by_normalize": map[string]any{
						"applied_shift_hours":     3.0,
						"note":                    "сдвиг применен",
						"messages_with_date_norm": 1.0,
					}},
				},
			},
			Messages: []map[string]any{
				{
					"id": 1.0, "type": "message", "from_id": "u1",
					"date": "2024-01-15T22:30:00",
					"meta_norm": map[string]any{
						"date_norm":  "2024-01-16T01:30:00+03:00",
						"text_plain": "hi",
						"media_cat":  "photo",
					},
				},
			},
		}

		export, err := ProjectExport(raw)
		if err != nil {
			t.Fatalf("Неожиданная ошибка: %v", err)
		}

		m := export.Messages[0]
		if m.Norm.DateNorm != "2024-01-16T01:30:00+03:00" {
			t.Errorf("Ожидался сохраненный date_norm, получено %q", m.Norm.DateNorm)
		}
		if m.Norm.MediaCat != "photo" {
			t.Errorf("Ожидался media_cat 'photo', получено %q", m.Norm.MediaCat)
		}
		if len(export.Meta) != 1 || export.Meta[0].ByNormalize.AppliedShiftHours != 3 {
			t.Error("Запись by_normalize должна быть восстановлена")
		}
	})

	t.Run("nil вход — ошибка", func(t *testing.T) {
		if _, err := ProjectExport(nil); err == nil {
			t.Error("Ожидалась ошибка для nil")
		}
	})
}

func TestParseISONaive(t *testing.T) {
	t.Run("Зона отбрасывается", func(t *testing.T) {
		a := parseISONaive("2024-01-15T10:00:00+05:00")
		b := parseISONaive("2024-01-15T10:00:00Z")
		c := parseISONaive("2024-01-15T10:00:00")
		if a == nil || b == nil || c == nil {
			t.Fatal("Все варианты должны разбираться")
		}
		if !a.Equal(*b) || !b.Equal(*c) {
			t.Error("Настенное время должно совпадать независимо от зоны")
		}
	})

	t.Run("Мусор дает nil", func(t *testing.T) {
		if parseISONaive("15 января") != nil {
			t.Error("Ожидался nil для нераспознанной строки")
		}
	})
}
