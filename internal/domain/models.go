package domain

// RawExport представляет разобранный, но еще не типизированный документ экспорта.
// Root хранит весь документ как есть, Messages — ссылки на элементы массива messages.
// Эта форма живет только на границе (парсер -> нормализация) и не передается дальше.
type RawExport struct {
	Root     map[string]any
	Messages []map[string]any
}

// SourceRef описывает файл-источник, из которого был загружен экспорт.
type SourceRef struct {
	Path string
	Name string
}

// Export представляет нормализованный экспорт чата во внутренней типизированной модели.
type Export struct {
	ChatID   string
	Name     string
	Messages []Message
	Meta     []MetaEntry
}

// MetaEntry — одна запись аудита в массиве meta верхнего уровня.
type MetaEntry struct {
	ByNormalize *NormalizeMeta `json:"by_normalize,omitempty"`
}

// NormalizeMeta — запись, которую нормализация добавляет в meta.
type NormalizeMeta struct {
	AppliedShiftHours    int    `json:"applied_shift_hours"`
	Note                 string `json:"note"`
	MessagesWithDateNorm int    `json:"messages_with_date_norm"`
}

// Message представляет одно сообщение чата после проекции из сырого JSON.
// Сырые поля остаются в исходном документе; здесь только то, что нужно анализу.
type Message struct {
	ID int
	// HasID — false, если поле id отсутствовало или не было целым числом.
	// Такое сообщение не участвует в структурах, ссылающихся по id.
	HasID        bool
	Type         string
	Date         string
	DateUnixtime string
	From         string
	FromID       string
	// ReplyTo — id сообщения, на которое дан ответ; nil, если ответа нет
	// или поле не удалось разобрать.
	ReplyTo      *int
	Edited       bool
	TextEntities []TextEntity
	Reactions    []Reaction
	// HasReactions — присутствовал ли ключ reactions в сыром сообщении,
	// даже если список не удалось разобрать.
	HasReactions bool
	MediaType    string
	StickerEmoji string
	HasPhoto     bool
	HasPoll      bool
	// DurationSeconds — длительность медиа (голосовые, видео) в секундах.
	DurationSeconds float64
	Norm            MetaNorm
}

// MetaNorm — производные поля, добавляемые нормализацией.
// Пустая строка означает null в сериализованном документе.
type MetaNorm struct {
	DateNorm   string
	EditedNorm string
	TextPlain  string
	MediaCat   string
}

// TextEntity представляет "богатую" часть текста (упоминание, ссылка, форматирование).
type TextEntity struct {
	Type   string
	Text   string
	UserID int64
	Href   string
}

// Reaction представляет одну реакцию на сообщение.
type Reaction struct {
	Emoji string
	Type  string
	Count int
}

// Key возвращает ключ реакции для подсчета: emoji, затем type, затем "?".
func (r Reaction) Key() string {
	if r.Emoji != "" {
		return r.Emoji
	}
	if r.Type != "" {
		return r.Type
	}
	return "?"
}
