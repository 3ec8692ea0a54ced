package ports

import (
	"telegram-chat-analyzer/internal/domain"
)

// DataSource определяет интерфейс для получения исходных данных чата.
type DataSource interface {
	// Fetch загружает данные из источника и возвращает их в виде байтового среза.
	Fetch() ([]byte, error)
}

// Parser определяет интерфейс для парсинга данных чата.
type Parser interface {
	// Parse преобразует сырые данные в полуструктурированную модель экспорта.
	// Отсутствие массива messages — фатальная ошибка документа.
	Parse(data []byte) (*domain.RawExport, error)
}

// Normalizer определяет интерфейс нормализации экспорта.
type Normalizer interface {
	// Normalize добавляет к каждому сообщению блок meta_norm (аддитивно,
	// сырые поля не изменяются) и возвращает типизированный экспорт.
	Normalize(raw *domain.RawExport, shiftHours int) (*domain.Export, error)
}

// AggregateBuilder определяет интерфейс построителя агрегатов.
type AggregateBuilder interface {
	Build(export *domain.Export, src domain.SourceRef) (*domain.AggregateReport, error)
}

// SocialGraphBuilder определяет интерфейс построителя социального графа.
type SocialGraphBuilder interface {
	Build(export *domain.Export, src domain.SourceRef) (*domain.SocialGraphReport, error)
}

// Lemmatizer определяет опциональную морфологическую нормализацию токенов.
// Реализация по умолчанию возвращает токен без изменений.
type Lemmatizer interface {
	Lemma(token string) string
}

// Exporter определяет интерфейс для записи итоговых документов.
type Exporter interface {
	// Export сериализует документ под указанным именем и возвращает путь к результату.
	Export(name string, doc any) (string, error)
}
