package services

import (
	"log/slog"
	"math"
	"sort"
	"strconv"
	"time"

	"telegram-chat-analyzer/internal/domain"
	"telegram-chat-analyzer/internal/ports"
)

// maxRootHops — предохранитель от циклов и патологических цепочек ответов.
// При срабатывании текущий узел объявляется корнем: безопасный режим отказа,
// дающий недогруппировку вместо бесконечного цикла.
const maxRootHops = 1000

// messageType — единственный тип записей, участвующий в агрегатах.
// Сервисные записи (type == "service" и пр.) не учитываются ни в одном счетчике.
const messageType = "message"

// AggregateService реализует интерфейс AggregateBuilder.
type AggregateService struct {
	log *slog.Logger
	now func() time.Time
}

// AggregateOption — функциональная опция для настройки AggregateService.
type AggregateOption func(*AggregateService)

// WithAggregateClock подменяет источник времени (для тестов).
func WithAggregateClock(now func() time.Time) AggregateOption {
	return func(s *AggregateService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithAggregateLogger устанавливает логгер для сервиса.
func WithAggregateLogger(l *slog.Logger) AggregateOption {
	return func(s *AggregateService) {
		if l != nil {
			s.log = l
		}
	}
}

// NewAggregateService создает новый экземпляр AggregateService.
func NewAggregateService(opts ...AggregateOption) ports.AggregateBuilder {
	s := &AggregateService{
		log: slog.Default(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// threadResolver разрешает корни цепочек ответов с мемоизацией путей.
// Сообщения неизменяемы в течение прогона, поэтому записи кеша не инвалидируются.
type threadResolver struct {
	parents map[int]*int
	cache   map[int]int
}

func newThreadResolver(msgs []domain.Message) *threadResolver {
	r := &threadResolver{
		parents: make(map[int]*int, len(msgs)),
		cache:   make(map[int]int),
	}
	for i := range msgs {
		m := &msgs[i]
		if m.Type != messageType || !m.HasID {
			continue
		}
		r.parents[m.ID] = m.ReplyTo
	}
	return r
}

// Resolve возвращает корень треда для id. Узел объявляется корнем, когда
// родительский указатель пуст, родитель отсутствует среди известных id,
// либо пройдено больше maxRootHops шагов. Каждый посещенный узел получает
// мемоизированный корень, так что повторные запросы по пути — O(1).
func (r *threadResolver) Resolve(id int) int {
	var seen []int
	x := id
	var root int
	for {
		parent, known := r.parents[x]
		if !known || parent == nil {
			root = x
			break
		}
		if _, parentKnown := r.parents[*parent]; !parentKnown {
			root = x
			break
		}
		if cached, ok := r.cache[x]; ok {
			root = cached
			break
		}
		seen = append(seen, x)
		x = *parent
		if len(seen) > maxRootHops {
			root = x
			break
		}
	}
	for _, y := range seen {
		r.cache[y] = root
	}
	return root
}

// Build строит документ агрегатов по нормализованному экспорту.
// Политика знаменателей: replies/reactions/media считаются от общего числа
// сообщений; разбивка медиа — от числа сообщений с медиа.
func (s *AggregateService) Build(export *domain.Export, src domain.SourceRef) (*domain.AggregateReport, error) {
	byDay := map[string]int{}
	byHour := domain.HourCounts{}
	for h := 0; h < 24; h++ {
		byHour[h] = 0
	}

	byAuthor := newOrderedCounter()
	nameByID := map[string]string{}
	idToMsg := map[int]*domain.Message{}
	emojiCounter := newOrderedCounter()
	reactionsByAuthor := newOrderedCounter()
	mediaCounter := newOrderedCounter()
	pollsByAuthor := newOrderedCounter()

	var messageCount, replyCount, editedCount, reactMsgCount int
	var mediaCount, photoCount, gifCount, otherMediaCount int

	type reactedMsg struct {
		total int
		id    int
	}
	var topReacted []reactedMsg

	msgs := export.Messages
	for i := range msgs {
		m := &msgs[i]
		if m.Type != messageType {
			continue
		}

		// Счетчики сводки и их знаменатели считаются по одной популяции —
		// всем записям типа message; наличие id влияет только на карты по id.
		messageCount++
		if m.HasID {
			idToMsg[m.ID] = m
		}
		if m.ReplyTo != nil {
			replyCount++
		}
		if m.Edited || m.Norm.EditedNorm != "" {
			editedCount++
		}
		if m.HasReactions {
			reactMsgCount++
		}

		if m.Norm.MediaCat != "" {
			mediaCount++
			switch m.Norm.MediaCat {
			case "photo":
				photoCount++
			case "animation (GIF)":
				gifCount++
			default:
				otherMediaCount++
			}
			mediaCounter.Add(m.Norm.MediaCat, 1)
			if m.Norm.MediaCat == "poll" && m.FromID != "" {
				pollsByAuthor.Add(m.FromID, 1)
			}
		}

		if m.FromID != "" {
			byAuthor.Add(m.FromID, 1)
			if m.From != "" {
				nameByID[m.FromID] = m.From
			}
		}

		if len(m.Norm.DateNorm) >= 10 {
			byDay[m.Norm.DateNorm[:10]]++
			if t, err := time.Parse("2006-01-02T15:04:05-07:00", m.Norm.DateNorm); err == nil {
				byHour[t.Hour()]++
			}
		}

		totalForMsg := 0
		for _, r := range m.Reactions {
			emojiCounter.Add(r.Key(), r.Count)
			totalForMsg += r.Count
		}
		if m.FromID != "" && totalForMsg > 0 {
			reactionsByAuthor.Add(m.FromID, totalForMsg)
		}
		if m.HasID {
			topReacted = append(topReacted, reactedMsg{total: totalForMsg, id: m.ID})
		}
	}

	// Второй проход: реконструкция тредов через разрешение корней.
	resolver := newThreadResolver(msgs)
	threadSize := newOrderedCounter()
	threadParticipants := map[int]map[string]struct{}{}
	threadRootOrder := []int{}
	threadRootSeen := map[int]struct{}{}
	for i := range msgs {
		m := &msgs[i]
		if m.Type != messageType || !m.HasID {
			continue
		}
		root := resolver.Resolve(m.ID)
		threadSize.Add(intKey(root), 1)
		if _, ok := threadRootSeen[root]; !ok {
			threadRootSeen[root] = struct{}{}
			threadRootOrder = append(threadRootOrder, root)
		}
		if m.FromID != "" {
			set := threadParticipants[root]
			if set == nil {
				set = map[string]struct{}{}
				threadParticipants[root] = set
			}
			set[m.FromID] = struct{}{}
		}
	}

	displayName := func(fid string) string {
		if name, ok := nameByID[fid]; ok {
			return name
		}
		return fid
	}

	report := &domain.AggregateReport{
		ChatID:              export.ChatID,
		SourceFilePath:      src.Path,
		SourceFileName:      src.Name,
		GenerationTimestamp: s.now().Unix(),
		ByDay:               byDay,
		ByHour:              byHour,
		MediaShares:         map[string]domain.CountPct{},
	}

	for _, e := range byAuthor.Top(10) {
		report.TopAuthors = append(report.TopAuthors, domain.AuthorCount{
			FromID:   e.Key,
			Username: displayName(e.Key),
			Count:    e.Count,
		})
	}

	for _, e := range threadSize.Top(5) {
		rootID, _ := parseIntKey(e.Key)
		info := domain.ThreadInfo{
			RootID:             rootID,
			Size:               e.Count,
			UniqueParticipants: len(threadParticipants[rootID]),
		}
		if rm := idToMsg[rootID]; rm != nil {
			info.Username = rm.From
			if info.Username == "" {
				info.Username = rm.FromID
			}
			info.DateNorm = rm.Norm.DateNorm
			if info.DateNorm == "" {
				info.DateNorm = rm.Date
			}
			info.TextPreview = preview(rm.Norm.TextPlain, 140)
		}
		report.ThreadsTop5 = append(report.ThreadsTop5, info)
	}

	for _, e := range emojiCounter.Top(5) {
		report.EmojiTop5 = append(report.EmojiTop5, domain.EmojiCount{Emoji: e.Key, Count: e.Count})
	}

	sort.SliceStable(topReacted, func(i, j int) bool {
		return topReacted[i].total > topReacted[j].total
	})
	for i := 0; i < len(topReacted) && i < 3; i++ {
		rm := idToMsg[topReacted[i].id]
		entry := domain.ReactedMessage{
			ID:             topReacted[i].id,
			ReactionsTotal: topReacted[i].total,
		}
		if rm != nil {
			entry.Username = rm.From
			if entry.Username == "" {
				entry.Username = rm.FromID
			}
			entry.DateNorm = rm.Norm.DateNorm
			if entry.DateNorm == "" {
				entry.DateNorm = rm.Date
			}
			entry.TextPreview = preview(rm.Norm.TextPlain, 140)
		}
		report.TopReactedMessagesTop3 = append(report.TopReactedMessagesTop3, entry)
	}

	for _, e := range reactionsByAuthor.Top(5) {
		report.ReactionsByAuthorTop5 = append(report.ReactionsByAuthorTop5, domain.AuthorReactions{
			FromID:         e.Key,
			Username:       displayName(e.Key),
			TotalReactions: e.Count,
		})
	}

	for _, e := range mediaCounter.Sorted() {
		report.MediaShares[e.Key] = domain.CountPct{
			Count: e.Count,
			Pct:   Pct(e.Count, mediaCount),
		}
	}

	for _, e := range pollsByAuthor.Top(3) {
		report.PollCreatorsTop3 = append(report.PollCreatorsTop3, domain.PollCreator{
			FromID:   e.Key,
			Username: displayName(e.Key),
			Polls:    e.Count,
		})
	}

	report.Summary = domain.Summary{
		TotalMessages: messageCount,
		Replies: domain.CountPct{
			Count: replyCount,
			Pct:   Pct(replyCount, messageCount),
		},
		EditedMsgs: editedCount,
		MessagesWithReactions: domain.CountPct{
			Count: reactMsgCount,
			Pct:   Pct(reactMsgCount, messageCount),
		},
		Media: domain.CountPct{
			Count: mediaCount,
			Pct:   Pct(mediaCount, messageCount),
		},
		MediaBreakdown: domain.MediaBreakdown{
			Photo: domain.CountPct{Count: photoCount, Pct: Pct(photoCount, mediaCount)},
			Gif:   domain.CountPct{Count: gifCount, Pct: Pct(gifCount, mediaCount)},
			Other: domain.CountPct{Count: otherMediaCount, Pct: Pct(otherMediaCount, mediaCount)},
		},
	}

	s.log.Info("Агрегаты построены",
		"messages", messageCount,
		"threads", len(threadRootOrder),
		"authors", byAuthor.Len(),
	)
	return report, nil
}

// Pct возвращает part/total*100, округленное до 2 знаков; 0.0 при пустом знаменателе.
func Pct(part, total int) float64 {
	if total == 0 {
		return 0.0
	}
	return math.Round(float64(part)/float64(total)*100.0*100.0) / 100.0
}

// preview обрезает текст до n рун.
func preview(s string, n int) string {
	runes := []rune(s)
	if len(runes) > n {
		runes = runes[:n]
	}
	return string(runes)
}

func intKey(id int) string {
	return strconv.Itoa(id)
}

func parseIntKey(key string) (int, error) {
	return strconv.Atoi(key)
}
