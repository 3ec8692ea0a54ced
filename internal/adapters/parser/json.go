package parser

import (
	"encoding/json"
	"errors"
	"fmt"

	"telegram-chat-analyzer/internal/domain"
	"telegram-chat-analyzer/internal/ports"
)

// ErrNoMessages возвращается, когда документ не содержит массива messages.
// Это структурная ошибка: без нее дальнейшая обработка невозможна.
var ErrNoMessages = errors.New("document has no messages array")

// JsonParser реализует интерфейс Parser для разбора JSON-экспорта.
type JsonParser struct{}

// NewJsonParser создает новый экземпляр JsonParser.
func NewJsonParser() ports.Parser {
	return &JsonParser{}
}

// Parse преобразует срез байт с JSON в полуструктурированный RawExport.
// Сообщения остаются "мешками полей": типизация происходит при нормализации,
// чтобы один битый элемент не ронял весь разбор.
func (p *JsonParser) Parse(data []byte) (*domain.RawExport, error) {
	var root map[string]any
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal json: %w", err)
	}

	rawMsgs, ok := root["messages"].([]any)
	if !ok {
		return nil, fmt.Errorf("%w: ожидается messages[]", ErrNoMessages)
	}

	msgs := make([]map[string]any, 0, len(rawMsgs))
	for _, item := range rawMsgs {
		m, ok := item.(map[string]any)
		if !ok {
			// Не-объект в messages пропускаем, не прерывая разбор.
			continue
		}
		msgs = append(msgs, m)
	}

	return &domain.RawExport{Root: root, Messages: msgs}, nil
}
