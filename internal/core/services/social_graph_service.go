package services

import (
	"log/slog"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"telegram-chat-analyzer/internal/domain"
	"telegram-chat-analyzer/internal/ports"
)

// formattingTypes — типы сущностей, учитываемые в статистике форматирования.
var formattingTypes = map[string]struct{}{
	"bold":          {},
	"italic":        {},
	"spoiler":       {},
	"custom_emoji":  {},
	"underline":     {},
	"strikethrough": {},
}

// SocialGraphService реализует интерфейс SocialGraphBuilder.
// Каждая грань считается независимо за один-два прохода по списку сообщений;
// битые поля (не-объекты, нецелые id, нечисловые длительности) молча
// пропускаются, не прерывая проход.
type SocialGraphService struct {
	log        *slog.Logger
	now        func() time.Time
	lemmatizer ports.Lemmatizer

	// minMessages — порог активности автора для поведенческих метрик.
	minMessages int
	// mattrWindow — размер окна MATTR в токенах.
	mattrWindow int
	// minTokens — минимум выживших токенов для расчета MATTR.
	minTokens int
}

// SocialOption — функциональная опция для настройки SocialGraphService.
type SocialOption func(*SocialGraphService)

// WithMinMessages устанавливает порог количества сообщений для поведенческих метрик.
func WithMinMessages(n int) SocialOption {
	return func(s *SocialGraphService) {
		if n > 0 {
			s.minMessages = n
		}
	}
}

// WithMattrWindow устанавливает размер окна MATTR и порог токенов.
func WithMattrWindow(n int) SocialOption {
	return func(s *SocialGraphService) {
		if n > 0 {
			s.mattrWindow = n
			s.minTokens = n
		}
	}
}

// WithLemmatizer подключает морфологический анализатор.
func WithLemmatizer(l ports.Lemmatizer) SocialOption {
	return func(s *SocialGraphService) {
		if l != nil {
			s.lemmatizer = l
		}
	}
}

// WithSocialClock подменяет источник времени (для тестов).
func WithSocialClock(now func() time.Time) SocialOption {
	return func(s *SocialGraphService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSocialLogger устанавливает логгер для сервиса.
func WithSocialLogger(l *slog.Logger) SocialOption {
	return func(s *SocialGraphService) {
		if l != nil {
			s.log = l
		}
	}
}

// NewSocialGraphService создает новый экземпляр SocialGraphService.
func NewSocialGraphService(opts ...SocialOption) ports.SocialGraphBuilder {
	s := &SocialGraphService{
		log:         slog.Default(),
		now:         time.Now,
		lemmatizer:  NoopLemmatizer{},
		minMessages: 1000,
		mattrWindow: 1000,
		minTokens:   1000,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// authorStats — накопитель поведенческих метрик одного автора.
type authorStats struct {
	fromID        string
	messages      int
	edited        int
	caps          int
	voiceMessages int
	voiceSeconds  float64
	formatting    map[string]int
	formattingSum int
	tokens        []string
	replyDeltas   []float64
	nightMsgs     int
	dayMsgs       int
	hourTotal     int
}

// Build строит документ социального графа и поведенческих метрик.
func (s *SocialGraphService) Build(export *domain.Export, src domain.SourceRef) (*domain.SocialGraphReport, error) {
	msgs := export.Messages

	nameByID := map[string]string{}
	msgAuthor := map[int]string{}
	msgTime := map[int]time.Time{}

	// Первый проход: карта "id сообщения -> автор" и отображаемые имена.
	// Без нее нельзя разрешать ответы, встречающиеся раньше своих целей.
	for i := range msgs {
		m := &msgs[i]
		if m.Type != messageType {
			continue
		}
		if m.HasID && m.FromID != "" {
			msgAuthor[m.ID] = m.FromID
			if m.From != "" {
				nameByID[m.FromID] = m.From
			}
		}
		if m.HasID && m.Norm.DateNorm != "" {
			if t, err := time.Parse("2006-01-02T15:04:05-07:00", m.Norm.DateNorm); err == nil {
				msgTime[m.ID] = t
			}
		}
	}

	mentionCounter := newOrderedCounter()
	pairCounter := newOrderedCounter()
	quotability := newOrderedCounter()
	domainCounter := newOrderedCounter()
	uniqueRepliers := map[string]struct{}{}

	stats := map[string]*authorStats{}
	statsOrder := []string{}
	byAuthor := func(fid string) *authorStats {
		st := stats[fid]
		if st == nil {
			st = &authorStats{fromID: fid, formatting: map[string]int{}}
			stats[fid] = st
			statsOrder = append(statsOrder, fid)
		}
		return st
	}

	// Второй проход: все грани.
	for i := range msgs {
		m := &msgs[i]
		if m.Type != messageType || m.FromID == "" {
			continue
		}
		st := byAuthor(m.FromID)
		st.messages++

		if m.Edited || m.Norm.EditedNorm != "" {
			st.edited++
		}

		for _, e := range m.TextEntities {
			switch e.Type {
			case "mention":
				if e.Text != "" {
					mentionCounter.Add(e.Text, 1)
				}
			case "text_mention":
				if e.UserID != 0 {
					key := strconv.FormatInt(e.UserID, 10)
					mentionCounter.Add(key, 1)
					if e.Text != "" {
						if _, known := nameByID[key]; !known {
							nameByID[key] = e.Text
						}
					}
				}
			case "link", "text_link":
				if d := linkDomain(e); d != "" {
					domainCounter.Add(d, 1)
				}
			}
			if _, ok := formattingTypes[e.Type]; ok {
				st.formatting[e.Type]++
				st.formattingSum++
			}
		}

		if m.ReplyTo != nil {
			if to, known := msgAuthor[*m.ReplyTo]; known {
				// Самоответы исключаются из матрицы пар, но учитываются
				// в индексе цитируемости.
				if m.FromID != to {
					pairCounter.Add(pairKey(m.FromID, to), 1)
					uniqueRepliers[m.FromID] = struct{}{}
				}
				quotability.Add(to, 1)

				if m.HasID {
					if own, okOwn := msgTime[m.ID]; okOwn {
						if parent, okP := msgTime[*m.ReplyTo]; okP {
							delta := own.Sub(parent).Seconds()
							if delta > 0 {
								st.replyDeltas = append(st.replyDeltas, delta)
							}
						}
					}
				}
			}
		}

		if m.Norm.MediaCat == "voice_message" && m.DurationSeconds > 0 {
			st.voiceMessages++
			st.voiceSeconds += m.DurationSeconds
		}

		if isCapsAbuse(m.Norm.TextPlain) {
			st.caps++
		}

		for _, tok := range Tokenize(m.Norm.TextPlain) {
			st.tokens = append(st.tokens, s.lemmatizer.Lemma(tok))
		}

		// Хронотип считается по часам из сырой ISO-строки даты,
		// а не из нормализованной.
		if t := parseISONaive(m.Date); t != nil {
			h := t.Hour()
			st.hourTotal++
			if h >= 1 && h <= 6 {
				st.nightMsgs++
			}
			if h >= 9 && h <= 17 {
				st.dayMsgs++
			}
		}
	}

	displayName := func(fid string) string {
		if name, ok := nameByID[fid]; ok {
			return name
		}
		return fid
	}

	report := &domain.SocialGraphReport{
		ChatID:              export.ChatID,
		SourceFilePath:      src.Path,
		SourceFileName:      src.Name,
		GenerationTimestamp: s.now().Unix(),
	}

	report.MentionMatrix = domain.MentionMatrixSection{
		Description: "Кого чаще всего упоминают (@username или text_mention)",
	}
	for _, e := range mentionCounter.Top(15) {
		report.MentionMatrix.TopMentioned = append(report.MentionMatrix.TopMentioned, domain.MentionCount{
			Mentioned: e.Key,
			Username:  displayName(e.Key),
			Count:     e.Count,
		})
	}

	report.ReplyMatrix = domain.ReplyMatrixSection{
		Description: "Кто кому чаще отвечает (таблица пар)",
	}
	for _, e := range pairCounter.Top(20) {
		from, to := splitPairKey(e.Key)
		report.ReplyMatrix.TopPairs = append(report.ReplyMatrix.TopPairs, domain.ReplyPair{
			FromID:       from,
			FromUsername: displayName(from),
			ToID:         to,
			ToUsername:   displayName(to),
			Count:        e.Count,
		})
	}

	report.QuotabilityIndex = domain.QuotabilitySection{
		Description: "На чьи сообщения чаще всего отвечают",
	}
	for _, e := range quotability.Top(10) {
		report.QuotabilityIndex.TopQuoted = append(report.QuotabilityIndex.TopQuoted, domain.QuotedCount{
			UserID:          e.Key,
			Username:        displayName(e.Key),
			RepliesReceived: e.Count,
		})
	}

	report.VoiceMessages = domain.VoiceSection{
		Description: "Суммарная длительность голосовых сообщений",
	}
	voiceOrder := filterAuthors(statsOrder, stats, func(st *authorStats) bool {
		return st.voiceSeconds > 0
	})
	sort.SliceStable(voiceOrder, func(i, j int) bool {
		return stats[voiceOrder[i]].voiceSeconds > stats[voiceOrder[j]].voiceSeconds
	})
	for _, fid := range topN(voiceOrder, 10) {
		st := stats[fid]
		report.VoiceMessages.TopSpeakers = append(report.VoiceMessages.TopSpeakers, domain.VoiceTotal{
			UserID:       fid,
			Username:     displayName(fid),
			Messages:     st.voiceMessages,
			TotalSeconds: round2(st.voiceSeconds),
			TotalHours:   round2(st.voiceSeconds / 3600.0),
		})
	}

	report.ExternalLinks = domain.LinkSection{
		Description: "Домены внешних ссылок",
	}
	for _, e := range domainCounter.Top(15) {
		report.ExternalLinks.TopDomains = append(report.ExternalLinks.TopDomains, domain.DomainCount{
			Domain: e.Key,
			Count:  e.Count,
		})
	}

	report.CapsAbuse = domain.CapsSection{
		Description: "Кто чаще всего пишет КАПСОМ",
	}
	capsOrder := filterAuthors(statsOrder, stats, func(st *authorStats) bool {
		return st.caps > 0
	})
	sort.SliceStable(capsOrder, func(i, j int) bool {
		return stats[capsOrder[i]].caps > stats[capsOrder[j]].caps
	})
	for _, fid := range topN(capsOrder, 10) {
		st := stats[fid]
		report.CapsAbuse.TopShouters = append(report.CapsAbuse.TopShouters, domain.CapsCount{
			UserID:        fid,
			Username:      displayName(fid),
			CapsMessages:  st.caps,
			TotalMessages: st.messages,
			Pct:           Pct(st.caps, st.messages),
		})
	}

	report.Formatting = domain.FormattingSection{
		Description: "Использование форматирования (bold, italic, spoiler и др.)",
	}
	fmtOrder := filterAuthors(statsOrder, stats, func(st *authorStats) bool {
		return st.formattingSum > 0
	})
	sort.SliceStable(fmtOrder, func(i, j int) bool {
		return stats[fmtOrder[i]].formattingSum > stats[fmtOrder[j]].formattingSum
	})
	for _, fid := range topN(fmtOrder, 10) {
		st := stats[fid]
		byType := make(map[string]int, len(st.formatting))
		for k, v := range st.formatting {
			byType[k] = v
		}
		report.Formatting.TopUsers = append(report.Formatting.TopUsers, domain.FormattingUsage{
			UserID:   fid,
			Username: displayName(fid),
			Total:    st.formattingSum,
			ByType:   byType,
		})
	}

	report.LexicalDiversity = domain.MattrSection{
		Description: "Лексическое разнообразие (MATTR, скользящее окно)",
	}
	type mattrEntry struct {
		fid    string
		tokens int
		score  float64
	}
	var mattrEntries []mattrEntry
	for _, fid := range statsOrder {
		st := stats[fid]
		if st.messages < s.minMessages || len(st.tokens) < s.minTokens {
			continue
		}
		mattrEntries = append(mattrEntries, mattrEntry{
			fid:    fid,
			tokens: len(st.tokens),
			score:  Mattr(st.tokens, s.mattrWindow),
		})
	}
	sort.SliceStable(mattrEntries, func(i, j int) bool {
		return mattrEntries[i].score > mattrEntries[j].score
	})
	for i := 0; i < len(mattrEntries) && i < 10; i++ {
		e := mattrEntries[i]
		report.LexicalDiversity.TopAuthors = append(report.LexicalDiversity.TopAuthors, domain.MattrScore{
			UserID:   e.fid,
			Username: displayName(e.fid),
			Tokens:   e.tokens,
			MattrPct: round2(e.score * 100.0),
		})
	}

	report.ReactionSpeed = domain.ReactionSpeedSection{
		Description: "Медианная задержка ответа (кто отвечает быстрее всех)",
	}
	type speedEntry struct {
		fid     string
		replies int
		median  float64
	}
	var speedEntries []speedEntry
	for _, fid := range statsOrder {
		st := stats[fid]
		if st.messages < s.minMessages || len(st.replyDeltas) == 0 {
			continue
		}
		deltas := append([]float64(nil), st.replyDeltas...)
		sort.Float64s(deltas)
		speedEntries = append(speedEntries, speedEntry{
			fid:     fid,
			replies: len(deltas),
			median:  Median(deltas),
		})
	}
	sort.SliceStable(speedEntries, func(i, j int) bool {
		return speedEntries[i].median < speedEntries[j].median
	})
	for i := 0; i < len(speedEntries) && i < 10; i++ {
		e := speedEntries[i]
		report.ReactionSpeed.Fastest = append(report.ReactionSpeed.Fastest, domain.ReactionSpeed{
			UserID:        e.fid,
			Username:      displayName(e.fid),
			Replies:       e.replies,
			MedianSeconds: round2(e.median),
		})
	}

	report.Chronotypes = domain.ChronotypeSection{
		Description: "Совы и жаворонки: распределение активности по часам",
	}
	var chronos []domain.Chronotype
	for _, fid := range statsOrder {
		st := stats[fid]
		if st.messages < s.minMessages || st.hourTotal == 0 {
			continue
		}
		// Доли считаются от всех сообщений автора: сообщения без
		// разобранной даты разбавляют обе доли, а не выпадают из базы.
		nightPct := Pct(st.nightMsgs, st.messages)
		dayPct := Pct(st.dayMsgs, st.messages)
		class := "Нейтральный"
		switch {
		case nightPct > 30.0:
			class = "Сова"
		case dayPct > 50.0:
			class = "Жаворонок"
		}
		chronos = append(chronos, domain.Chronotype{
			UserID:   fid,
			Username: displayName(fid),
			NightPct: nightPct,
			DayPct:   dayPct,
			Class:    class,
		})
	}
	sort.SliceStable(chronos, func(i, j int) bool {
		return chronos[i].NightPct > chronos[j].NightPct
	})
	report.Chronotypes.Authors = chronos

	report.SelfCensorship = domain.EditRateSection{
		Description: "Самоцензура: доля отредактированных сообщений",
	}
	type editEntry struct {
		fid string
		pct float64
	}
	var editEntries []editEntry
	for _, fid := range statsOrder {
		st := stats[fid]
		if st.messages < s.minMessages {
			continue
		}
		editEntries = append(editEntries, editEntry{fid: fid, pct: Pct(st.edited, st.messages)})
	}
	sort.SliceStable(editEntries, func(i, j int) bool {
		return editEntries[i].pct > editEntries[j].pct
	})
	for i := 0; i < len(editEntries) && i < 10; i++ {
		e := editEntries[i]
		st := stats[e.fid]
		report.SelfCensorship.TopEditors = append(report.SelfCensorship.TopEditors, domain.EditRate{
			UserID:        e.fid,
			Username:      displayName(e.fid),
			EditedCount:   st.edited,
			TotalMessages: st.messages,
			Pct:           e.pct,
		})
	}

	report.Summary = domain.SocialSummary{
		TotalMentions:        mentionCounter.Total(),
		UniqueMentionedUsers: mentionCounter.Len(),
		TotalReplies:         pairCounter.Total(),
		UniqueRepliers:       len(uniqueRepliers),
		UniqueQuotedUsers:    quotability.Len(),
	}

	s.log.Info("Социальный граф построен",
		"mentions", report.Summary.TotalMentions,
		"replies", report.Summary.TotalReplies,
		"quoted_users", report.Summary.UniqueQuotedUsers,
	)
	return report, nil
}

// isCapsAbuse определяет "капсовое" сообщение: больше 10 букв и
// больше 70% букв в верхнем регистре.
func isCapsAbuse(text string) bool {
	letters, upper := 0, 0
	for _, r := range text {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	return letters > 10 && float64(upper)/float64(letters) > 0.7
}

// linkDomain извлекает домен из ссылочной сущности: href, иначе текст;
// схема по умолчанию http://, результат в нижнем регистре.
func linkDomain(e domain.TextEntity) string {
	raw := e.Href
	if raw == "" {
		raw = e.Text
	}
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// pairKey собирает составной ключ направленной пары авторов.
// NUL не встречается в идентификаторах, поэтому разделение однозначно.
func pairKey(from, to string) string {
	return from + "\x00" + to
}

func splitPairKey(key string) (string, string) {
	parts := strings.SplitN(key, "\x00", 2)
	if len(parts) != 2 {
		return key, ""
	}
	return parts[0], parts[1]
}

func filterAuthors(order []string, stats map[string]*authorStats, keep func(*authorStats) bool) []string {
	out := make([]string, 0, len(order))
	for _, fid := range order {
		if keep(stats[fid]) {
			out = append(out, fid)
		}
	}
	return out
}

func topN(keys []string, n int) []string {
	if len(keys) > n {
		return keys[:n]
	}
	return keys
}

func round2(v float64) float64 {
	return math.Round(v*100.0) / 100.0
}
