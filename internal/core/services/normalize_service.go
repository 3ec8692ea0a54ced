package services

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"telegram-chat-analyzer/internal/domain"
	"telegram-chat-analyzer/internal/ports"
)

// mediaMap — таблица соответствия сырого media_type категории.
// Неизвестные непустые значения отображаются в "other".
var mediaMap = map[string]string{
	"photo":         "photo",
	"video":         "video",
	"video_file":    "video",
	"audio_file":    "audio_file",
	"voice_message": "voice_message",
	"video_message": "video_message",
	"sticker":       "sticker",
	"animation":     "animation (GIF)",
	"gif":           "animation (GIF)",
	"document":      "document",
	"file":          "document",
	"poll":          "poll",
	"contact":       "contact",
	"location":      "location",
	"game":          "game",
}

// MediaCategoriesOrder — фиксированный порядок категорий для отчетов.
var MediaCategoriesOrder = []string{
	"photo", "video", "audio_file", "voice_message", "video_message",
	"sticker", "animation (GIF)", "document", "poll", "contact",
	"location", "game", "other",
}

// NormalizeService реализует интерфейс Normalizer.
// Нормализация аддитивна: сырые поля документа не изменяются и не удаляются,
// все производные данные складываются в m["meta_norm"].
type NormalizeService struct {
	log *slog.Logger
}

// NewNormalizeService создает новый экземпляр NormalizeService.
func NewNormalizeService(logger *slog.Logger) ports.Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &NormalizeService{log: logger}
}

// Normalize применяет часовой сдвиг, уплощает текст и категоризирует медиа.
// Каждое сырое сообщение получает блок meta_norm; параллельно строится
// типизированный Export для последующих проходов. Одно битое сообщение
// никогда не прерывает нормализацию — его производные поля остаются null.
func (s *NormalizeService) Normalize(raw *domain.RawExport, shiftHours int) (*domain.Export, error) {
	if raw == nil {
		return nil, fmt.Errorf("нечего нормализовать: raw == nil")
	}

	export := &domain.Export{
		ChatID:   chatIDString(raw.Root["id"]),
		Name:     stringField(raw.Root, "name"),
		Messages: make([]domain.Message, 0, len(raw.Messages)),
	}

	changed := 0
	for _, m := range raw.Messages {
		norm := map[string]any{}
		typed := projectMessage(m)

		var dtNaive *time.Time
		if v, ok := m["date"].(string); ok {
			dtNaive = parseISONaive(v)
		}
		if dtNaive == nil {
			if v, ok := m["date_unixtime"].(string); ok {
				dtNaive = parseUnixtimeString(v)
			}
		}

		if dtNaive != nil {
			dateNorm := applyShiftAndFormat(*dtNaive, shiftHours)
			norm["date_norm"] = dateNorm
			typed.Norm.DateNorm = dateNorm
			changed++
		} else {
			norm["date_norm"] = nil
		}

		if _, okE := m["edited"]; okE || hasKey(m, "edited_unixtime") {
			var edtNaive *time.Time
			if v, ok := m["edited_unixtime"].(string); ok {
				edtNaive = parseUnixtimeString(v)
			}
			if edtNaive == nil {
				if v, ok := m["edited"].(string); ok {
					edtNaive = parseISONaive(v)
				}
			}
			if edtNaive != nil {
				editedNorm := applyShiftAndFormat(*edtNaive, shiftHours)
				norm["edited_norm"] = editedNorm
				typed.Norm.EditedNorm = editedNorm
			}
		}

		textPlain := FlattenText(m["text"])
		norm["text_plain"] = textPlain
		typed.Norm.TextPlain = textPlain

		mediaCat := categorizeMedia(m)
		if mediaCat != "" {
			norm["media_cat"] = mediaCat
		} else {
			norm["media_cat"] = nil
		}
		typed.Norm.MediaCat = mediaCat

		m["meta_norm"] = norm
		export.Messages = append(export.Messages, typed)
	}

	entry := domain.MetaEntry{ByNormalize: &domain.NormalizeMeta{
		AppliedShiftHours:    shiftHours,
		Note:                 fmt.Sprintf("Созданы поля 'meta_norm' с примененным сдвигом %+d", shiftHours),
		MessagesWithDateNorm: changed,
	}}
	export.Meta = append(export.Meta, entry)
	appendMetaEntry(raw.Root, entry)

	s.log.Info("Нормализация завершена",
		"messages", len(raw.Messages),
		"with_date_norm", changed,
		"shift_hours", shiftHours,
	)
	return export, nil
}

// ProjectExport проецирует уже нормализованный документ в типизированную
// модель, читая сохраненные блоки meta_norm. Повторная нормализация не
// выполняется: примененный сдвиг известен только исходному файлу.
func ProjectExport(raw *domain.RawExport) (*domain.Export, error) {
	if raw == nil {
		return nil, fmt.Errorf("нечего проецировать: raw == nil")
	}

	export := &domain.Export{
		ChatID:   chatIDString(raw.Root["id"]),
		Name:     stringField(raw.Root, "name"),
		Messages: make([]domain.Message, 0, len(raw.Messages)),
	}

	for _, m := range raw.Messages {
		typed := projectMessage(m)
		if norm, ok := m["meta_norm"].(map[string]any); ok {
			typed.Norm.DateNorm = stringField(norm, "date_norm")
			typed.Norm.EditedNorm = stringField(norm, "edited_norm")
			typed.Norm.TextPlain = stringField(norm, "text_plain")
			typed.Norm.MediaCat = stringField(norm, "media_cat")
		}
		export.Messages = append(export.Messages, typed)
	}

	if meta, ok := raw.Root["meta"].([]any); ok {
		for _, item := range meta {
			entryMap, ok := item.(map[string]any)
			if !ok {
				continue
			}
			byNorm, ok := entryMap["by_normalize"].(map[string]any)
			if !ok {
				continue
			}
			shift, _ := intField(byNorm["applied_shift_hours"])
			withDate, _ := intField(byNorm["messages_with_date_norm"])
			export.Meta = append(export.Meta, domain.MetaEntry{ByNormalize: &domain.NormalizeMeta{
				AppliedShiftHours:    shift,
				Note:                 stringField(byNorm, "note"),
				MessagesWithDateNorm: withDate,
			}})
		}
	}

	return export, nil
}

// projectMessage переводит сырое сообщение в типизированную модель.
// Любое поле, которое не удалось разобрать, деградирует до нулевого значения.
func projectMessage(m map[string]any) domain.Message {
	msg := domain.Message{
		Type:         stringField(m, "type"),
		Date:         stringField(m, "date"),
		DateUnixtime: stringField(m, "date_unixtime"),
		From:         stringField(m, "from"),
		FromID:       idString(m["from_id"]),
		MediaType:    stringField(m, "media_type"),
		StickerEmoji: stringField(m, "sticker_emoji"),
	}

	if id, ok := intField(m["id"]); ok {
		msg.ID = id
		msg.HasID = true
	}
	if pid, ok := intField(m["reply_to_message_id"]); ok {
		p := pid
		msg.ReplyTo = &p
	}

	_, hasEdited := m["edited"]
	_, hasEditedUnix := m["edited_unixtime"]
	msg.Edited = hasEdited || hasEditedUnix

	_, msg.HasPhoto = m["photo"]
	_, poll := m["poll"].(map[string]any)
	msg.HasPoll = poll

	if d, ok := floatField(m["duration_seconds"]); ok {
		msg.DurationSeconds = d
	}

	if _, ok := m["reactions"]; ok {
		msg.HasReactions = true
	}
	if list, ok := m["reactions"].([]any); ok {
		for _, item := range list {
			r, ok := item.(map[string]any)
			if !ok {
				continue
			}
			count, _ := intField(r["count"])
			msg.Reactions = append(msg.Reactions, domain.Reaction{
				Emoji: stringField(r, "emoji"),
				Type:  stringField(r, "type"),
				Count: count,
			})
		}
	}

	if list, ok := m["text_entities"].([]any); ok {
		for _, item := range list {
			e, ok := item.(map[string]any)
			if !ok {
				continue
			}
			entity := domain.TextEntity{
				Type: stringField(e, "type"),
				Text: stringField(e, "text"),
				Href: stringField(e, "href"),
			}
			if uid, ok := intField(e["user_id"]); ok {
				entity.UserID = int64(uid)
			}
			msg.TextEntities = append(msg.TextEntities, entity)
		}
	}

	return msg
}

// FlattenText уплощает поле text: строка проходит как есть, список фрагментов
// конкатенируется (строки и поля text объектов), остальное дает пустую строку.
func FlattenText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		var sb strings.Builder
		for _, seg := range t {
			switch s := seg.(type) {
			case string:
				sb.WriteString(s)
			case map[string]any:
				if txt, ok := s["text"].(string); ok {
					sb.WriteString(txt)
				}
			}
		}
		return sb.String()
	default:
		return ""
	}
}

// categorizeMedia определяет категорию медиа: явный media_type через таблицу,
// иначе эвристики в порядке poll -> sticker_emoji -> photo.
func categorizeMedia(m map[string]any) string {
	if mt := stringField(m, "media_type"); mt != "" {
		if cat, ok := mediaMap[mt]; ok {
			return cat
		}
		return "other"
	}
	if _, ok := m["poll"].(map[string]any); ok {
		return "poll"
	}
	if se := stringField(m, "sticker_emoji"); se != "" {
		return "sticker"
	}
	if _, ok := m["photo"]; ok {
		return "photo"
	}
	return ""
}

// parseISONaive разбирает ISO-8601 строку, отбрасывая обозначение зоны.
// Время в экспорте считается "неопределенным", поэтому зона игнорируется.
func parseISONaive(s string) *time.Time {
	if s == "" {
		return nil
	}
	s = strings.TrimSuffix(s, "Z")
	if len(s) > 6 && (s[len(s)-6] == '+' || s[len(s)-6] == '-') {
		s = s[:len(s)-6]
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02T15:04:05.999999999"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// parseUnixtimeString разбирает строку с секундами эпохи в naive-время (UTC).
func parseUnixtimeString(s string) *time.Time {
	if s == "" {
		return nil
	}
	sec, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}

// applyShiftAndFormat добавляет сдвиг к naive-времени и форматирует результат
// с этим же сдвигом в качестве смещения UTC. Это политика "подписать как
// локальное": настенные часы уже включают сдвиг, а смещение документирует его.
func applyShiftAndFormat(t time.Time, shiftHours int) string {
	shifted := t.Add(time.Duration(shiftHours) * time.Hour)
	zone := time.FixedZone(fmt.Sprintf("UTC%+d", shiftHours), shiftHours*3600)
	labeled := time.Date(
		shifted.Year(), shifted.Month(), shifted.Day(),
		shifted.Hour(), shifted.Minute(), shifted.Second(),
		0, zone,
	)
	return labeled.Format("2006-01-02T15:04:05-07:00")
}

// appendMetaEntry дописывает запись аудита в массив meta сырого документа.
func appendMetaEntry(root map[string]any, entry domain.MetaEntry) {
	meta, _ := root["meta"].([]any)
	if meta == nil {
		meta = []any{}
	}
	meta = append(meta, map[string]any{
		"by_normalize": map[string]any{
			"applied_shift_hours":     entry.ByNormalize.AppliedShiftHours,
			"note":                    entry.ByNormalize.Note,
			"messages_with_date_norm": entry.ByNormalize.MessagesWithDateNorm,
		},
	})
	root["meta"] = meta
}

func hasKey(m map[string]any, key string) bool {
	_, ok := m[key]
	return ok
}

func stringField(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}

// idString приводит идентификатор автора к строковому ключу.
// В экспорте from_id бывает строкой ("user12345") или числом.
func idString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatInt(int64(t), 10)
	default:
		return ""
	}
}

// intField извлекает целое из значения JSON (float64 без дробной части или строка).
func intField(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		if t == float64(int64(t)) {
			return int(t), true
		}
		return 0, false
	case string:
		n, err := strconv.Atoi(t)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func floatField(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func chatIDString(v any) string {
	switch t := v.(type) {
	case string:
		if t != "" {
			return t
		}
	case float64:
		return strconv.FormatInt(int64(t), 10)
	}
	return "unknown_chat_id"
}
