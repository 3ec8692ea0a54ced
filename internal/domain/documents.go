package domain

import (
	"bytes"
	"fmt"
)

// CountPct — пара "количество + доля в процентах".
type CountPct struct {
	Count int     `json:"count"`
	Pct   float64 `json:"pct"`
}

// HourCounts — распределение сообщений по часам суток (0..23).
// Сериализуется с числовым порядком ключей, а не лексикографическим.
type HourCounts map[int]int

// MarshalJSON всегда выводит все 24 часа в порядке 0..23.
func (h HourCounts) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for hour := 0; hour < 24; hour++ {
		if hour > 0 {
			buf.WriteByte(',')
		}
		fmt.Fprintf(&buf, "\"%d\":%d", hour, h[hour])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// AggregateReport — итоговый документ агрегатов, потребляется рендерами отчетов.
type AggregateReport struct {
	ChatID              string `json:"chat_id"`
	SourceFilePath      string `json:"source_file_path"`
	SourceFileName      string `json:"source_file_name"`
	GenerationTimestamp int64  `json:"generation_timestamp"`

	Summary Summary        `json:"summary"`
	ByDay   map[string]int `json:"by_day"`
	ByHour  HourCounts     `json:"by_hour"`

	TopAuthors             []AuthorCount     `json:"top_authors"`
	ThreadsTop5            []ThreadInfo      `json:"threads_top5"`
	EmojiTop5              []EmojiCount      `json:"emoji_top5"`
	TopReactedMessagesTop3 []ReactedMessage  `json:"top_reacted_messages_top3"`
	ReactionsByAuthorTop5  []AuthorReactions `json:"reactions_by_author_top5"`
	MediaShares            map[string]CountPct `json:"media_shares"`
	PollCreatorsTop3       []PollCreator     `json:"poll_creators_top3"`
}

// Summary — сводные счетчики по чату.
type Summary struct {
	TotalMessages         int            `json:"total_messages"`
	Replies               CountPct       `json:"replies"`
	EditedMsgs            int            `json:"edited_msgs"`
	MessagesWithReactions CountPct       `json:"messages_with_reactions"`
	Media                 CountPct       `json:"media"`
	MediaBreakdown        MediaBreakdown `json:"media_breakdown"`
}

// MediaBreakdown — разбивка медиа-сообщений на фото/GIF/прочее.
type MediaBreakdown struct {
	Photo CountPct `json:"photo"`
	Gif   CountPct `json:"gif"`
	Other CountPct `json:"other"`
}

// AuthorCount — автор и количество его сообщений.
type AuthorCount struct {
	FromID   string `json:"from_id"`
	Username string `json:"username"`
	Count    int    `json:"count"`
}

// ThreadInfo — описание одного из крупнейших тредов.
type ThreadInfo struct {
	RootID             int    `json:"root_id"`
	Size               int    `json:"size"`
	Username           string `json:"username"`
	DateNorm           string `json:"date_norm"`
	TextPreview        string `json:"text_preview"`
	UniqueParticipants int    `json:"unique_participants"`
}

// EmojiCount — эмодзи и суммарное количество реакций с ним.
type EmojiCount struct {
	Emoji string `json:"emoji"`
	Count int    `json:"count"`
}

// ReactedMessage — одно из самых "отреагированных" сообщений.
type ReactedMessage struct {
	ID             int    `json:"id"`
	ReactionsTotal int    `json:"reactions_total"`
	Username       string `json:"username"`
	DateNorm       string `json:"date_norm"`
	TextPreview    string `json:"text_preview"`
}

// AuthorReactions — автор и сумма полученных им реакций.
type AuthorReactions struct {
	FromID         string `json:"from_id"`
	Username       string `json:"username"`
	TotalReactions int    `json:"total_reactions"`
}

// PollCreator — автор и количество созданных им опросов.
type PollCreator struct {
	FromID   string `json:"from_id"`
	Username string `json:"username"`
	Polls    int    `json:"polls"`
}

// AnalysisResult объединяет оба итоговых документа; используется
// HTTP-сервером и кешем результатов.
type AnalysisResult struct {
	Aggregates  *AggregateReport   `json:"aggregates"`
	SocialGraph *SocialGraphReport `json:"social_graph"`
}

// SocialGraphReport — документ социального графа и поведенческих метрик.
type SocialGraphReport struct {
	ChatID              string `json:"chat_id"`
	SourceFilePath      string `json:"source_file_path"`
	SourceFileName      string `json:"source_file_name"`
	GenerationTimestamp int64  `json:"generation_timestamp"`

	Summary SocialSummary `json:"summary"`

	MentionMatrix    MentionMatrixSection `json:"mention_matrix"`
	ReplyMatrix      ReplyMatrixSection   `json:"reply_matrix"`
	QuotabilityIndex QuotabilitySection   `json:"quotability_index"`
	VoiceMessages    VoiceSection         `json:"voice_messages"`
	ExternalLinks    LinkSection          `json:"external_links"`
	CapsAbuse        CapsSection          `json:"caps_abuse"`
	Formatting       FormattingSection    `json:"formatting"`
	LexicalDiversity MattrSection         `json:"lexical_diversity"`
	ReactionSpeed    ReactionSpeedSection `json:"reaction_speed"`
	Chronotypes      ChronotypeSection    `json:"chronotypes"`
	SelfCensorship   EditRateSection      `json:"self_censorship"`
}

// SocialSummary — сводка по социальному графу.
type SocialSummary struct {
	TotalMentions        int `json:"total_mentions"`
	UniqueMentionedUsers int `json:"unique_mentioned_users"`
	TotalReplies         int `json:"total_replies"`
	UniqueRepliers       int `json:"unique_repliers"`
	UniqueQuotedUsers    int `json:"unique_quoted_users"`
}

// MentionMatrixSection — кого чаще всего упоминают.
type MentionMatrixSection struct {
	Description  string         `json:"description"`
	TopMentioned []MentionCount `json:"top_mentioned"`
}

// MentionCount — один упоминаемый и количество упоминаний.
type MentionCount struct {
	Mentioned string `json:"mentioned"`
	Username  string `json:"username"`
	Count     int    `json:"count"`
}

// ReplyMatrixSection — кто кому чаще отвечает.
type ReplyMatrixSection struct {
	Description string      `json:"description"`
	TopPairs    []ReplyPair `json:"top_pairs"`
}

// ReplyPair — направленная пара "кто -> кому" и количество ответов.
type ReplyPair struct {
	FromID       string `json:"from_id"`
	FromUsername string `json:"from_username"`
	ToID         string `json:"to_id"`
	ToUsername   string `json:"to_username"`
	Count        int    `json:"count"`
}

// QuotabilitySection — на чьи сообщения чаще всего отвечают.
type QuotabilitySection struct {
	Description string        `json:"description"`
	TopQuoted   []QuotedCount `json:"top_quoted"`
}

// QuotedCount — автор и количество полученных на его сообщения ответов.
type QuotedCount struct {
	UserID          string `json:"user_id"`
	Username        string `json:"username"`
	RepliesReceived int    `json:"replies_received"`
}

// VoiceSection — суммарная длительность голосовых сообщений по авторам.
type VoiceSection struct {
	Description string       `json:"description"`
	TopSpeakers []VoiceTotal `json:"top_speakers"`
}

// VoiceTotal — автор и суммарная длительность его голосовых.
type VoiceTotal struct {
	UserID       string  `json:"user_id"`
	Username     string  `json:"username"`
	Messages     int     `json:"messages"`
	TotalSeconds float64 `json:"total_seconds"`
	TotalHours   float64 `json:"total_hours"`
}

// LinkSection — домены внешних ссылок.
type LinkSection struct {
	Description string        `json:"description"`
	TopDomains  []DomainCount `json:"top_domains"`
}

// DomainCount — домен и количество ссылок на него.
type DomainCount struct {
	Domain string `json:"domain"`
	Count  int    `json:"count"`
}

// CapsSection — злоупотребление капсом.
type CapsSection struct {
	Description string      `json:"description"`
	TopShouters []CapsCount `json:"top_shouters"`
}

// CapsCount — автор, количество "капсовых" сообщений и их доля.
type CapsCount struct {
	UserID        string  `json:"user_id"`
	Username      string  `json:"username"`
	CapsMessages  int     `json:"caps_messages"`
	TotalMessages int     `json:"total_messages"`
	Pct           float64 `json:"pct"`
}

// FormattingSection — использование форматирования текста.
type FormattingSection struct {
	Description string            `json:"description"`
	TopUsers    []FormattingUsage `json:"top_users"`
}

// FormattingUsage — автор, суммарное число сущностей форматирования и разбивка по типам.
type FormattingUsage struct {
	UserID   string         `json:"user_id"`
	Username string         `json:"username"`
	Total    int            `json:"total"`
	ByType   map[string]int `json:"by_type"`
}

// MattrSection — лексическое разнообразие (MATTR).
type MattrSection struct {
	Description string       `json:"description"`
	TopAuthors  []MattrScore `json:"top_authors"`
}

// MattrScore — автор и его средний MATTR в процентах.
type MattrScore struct {
	UserID   string  `json:"user_id"`
	Username string  `json:"username"`
	Tokens   int     `json:"tokens"`
	MattrPct float64 `json:"mattr_pct"`
}

// ReactionSpeedSection — скорость реакции (медиана задержки ответа).
type ReactionSpeedSection struct {
	Description string          `json:"description"`
	Fastest     []ReactionSpeed `json:"fastest"`
}

// ReactionSpeed — автор и медианная задержка его ответов в секундах.
type ReactionSpeed struct {
	UserID        string  `json:"user_id"`
	Username      string  `json:"username"`
	Replies       int     `json:"replies"`
	MedianSeconds float64 `json:"median_seconds"`
}

// ChronotypeSection — классификация "совы и жаворонки".
type ChronotypeSection struct {
	Description string       `json:"description"`
	Authors     []Chronotype `json:"authors"`
}

// Chronotype — автор, его ночная/дневная доля и итоговый класс.
type Chronotype struct {
	UserID   string  `json:"user_id"`
	Username string  `json:"username"`
	NightPct float64 `json:"night_pct"`
	DayPct   float64 `json:"day_pct"`
	Class    string  `json:"class"`
}

// EditRateSection — самоцензура (доля отредактированных сообщений).
type EditRateSection struct {
	Description string     `json:"description"`
	TopEditors  []EditRate `json:"top_editors"`
}

// EditRate — автор и доля его отредактированных сообщений.
type EditRate struct {
	UserID        string  `json:"user_id"`
	Username      string  `json:"username"`
	EditedCount   int     `json:"edited_count"`
	TotalMessages int     `json:"total_messages"`
	Pct           float64 `json:"pct"`
}
