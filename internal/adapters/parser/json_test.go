package parser

import (
	"errors"
	"testing"
)

func TestJsonParser(t *testing.T) {
	t.Run("NewJsonParser создает корректный экземпляр", func(t *testing.T) {
		p := NewJsonParser()
		if p == nil {
			t.Error("Ожидался экземпляр JsonParser, получен nil")
		}
	})

	t.Run("Разбор корректного JSON", func(t *testing.T) {
		p := &JsonParser{}
		testData := `{
			"name": "Test Chat",
			"id": 12345,
			"messages": [
				{
					"id": 1,
					"type": "message",
					"date": "2023-01-01T00:00:00",
					"from": "John Doe",
					"from_id": "user123",
					"text": "Hello, World!"
				}
			]
		}`

		raw, err := p.Parse([]byte(testData))
		if err != nil {
			t.Fatalf("Неожиданная ошибка: %v", err)
		}

		if raw.Root["name"] != "Test Chat" {
			t.Errorf("Ожидалось имя 'Test Chat', получено '%v'", raw.Root["name"])
		}

		if len(raw.Messages) != 1 {
			t.Fatalf("Ожидалось 1 сообщение, получено %d", len(raw.Messages))
		}

		if raw.Messages[0]["from_id"] != "user123" {
			t.Errorf("Ожидался from_id 'user123', получено '%v'", raw.Messages[0]["from_id"])
		}
	})

	t.Run("Разбор некорректного JSON возвращает ошибку", func(t *testing.T) {
		p := &JsonParser{}
		if _, err := p.Parse([]byte(`{"messages": [`)); err == nil {
			t.Error("Ожидалась ошибка разбора, получен nil")
		}
	})

	t.Run("Отсутствие массива messages — фатальная ошибка", func(t *testing.T) {
		p := &JsonParser{}
		_, err := p.Parse([]byte(`{"name": "Chat", "id": 1}`))
		if err == nil {
			t.Fatal("Ожидалась ошибка, получен nil")
		}
		if !errors.Is(err, ErrNoMessages) {
			t.Errorf("Ожидалась ошибка ErrNoMessages, получено: %v", err)
		}
	})

	t.Run("messages не-массив — тоже фатальная ошибка", func(t *testing.T) {
		p := &JsonParser{}
		if _, err := p.Parse([]byte(`{"messages": "oops"}`)); !errors.Is(err, ErrNoMessages) {
			t.Errorf("Ожидалась ошибка ErrNoMessages, получено: %v", err)
		}
	})

	t.Run("Не-объекты внутри messages пропускаются", func(t *testing.T) {
		p := &JsonParser{}
		raw, err := p.Parse([]byte(`{"messages": [{"id": 1}, "мусор", 42, {"id": 2}]}`))
		if err != nil {
			t.Fatalf("Неожиданная ошибка: %v", err)
		}
		if len(raw.Messages) != 2 {
			t.Errorf("Ожидалось 2 сообщения после фильтрации, получено %d", len(raw.Messages))
		}
	})
}
