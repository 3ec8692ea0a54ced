package services

import (
	"regexp"
	"strings"
)

// tokenRe выделяет словоподобные последовательности из минимум 3 букв
// (кириллица или латиница) в тексте, приведенном к нижнему регистру.
var tokenRe = regexp.MustCompile(`[a-zа-яё]{3,}`)

// stopWords — фиксированный двуязычный набор стоп-слов, исключаемых
// из расчета лексического разнообразия.
var stopWords = map[string]struct{}{}

func init() {
	for _, w := range []string{
		// Русские
		"это", "как", "так", "что", "все", "всё", "она", "оно", "они",
		"его", "еще", "ещё", "уже", "для", "вот", "кто", "где", "есть", "надо",
		"нет", "был", "была", "было", "были", "быть", "тут", "там", "при",
		"чтобы", "если", "когда", "только", "можно", "него", "нее", "неё",
		"меня", "тебя", "себя", "мне", "тебе", "себе", "нас", "вас", "них",
		"даже", "просто", "очень", "тоже", "или", "потому", "того", "этого",
		"этот", "эта", "эти", "том", "чем", "про", "под", "над", "будет",
		// Английские
		"the", "and", "for", "are", "but", "not", "you", "all", "any", "can",
		"her", "was", "one", "our", "out", "has", "have", "had", "him", "his",
		"how", "its", "may", "new", "now", "old", "see", "two", "way", "who",
		"did", "get", "use", "your", "that", "this", "with", "they", "will",
		"what", "when", "there", "their", "from", "been", "just", "like",
	} {
		stopWords[w] = struct{}{}
	}
}

// Tokenize разбивает уплощенный текст на токены для лексического анализа:
// нижний регистр, минимум 3 буквы, без стоп-слов.
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}
	raw := tokenRe.FindAllString(strings.ToLower(text), -1)
	tokens := make([]string, 0, len(raw))
	for _, t := range raw {
		if _, stop := stopWords[t]; stop {
			continue
		}
		tokens = append(tokens, t)
	}
	return tokens
}

// NoopLemmatizer — лемматизатор по умолчанию: возвращает токен как есть.
// Морфологический анализ — опциональная возможность; без нее используется
// поверхностная форма токена.
type NoopLemmatizer struct{}

// Lemma возвращает токен без изменений.
func (NoopLemmatizer) Lemma(token string) string {
	return token
}

// Mattr вычисляет Moving-Average Type-Token Ratio: среднее по всем окнам
// длины window отношение числа различных токенов к window. Для списка короче
// окна результат 0.0 — это сигнал "мало данных", а не ошибка.
// Работает за O(n): счетчики окна обновляются инкрементально.
func Mattr(tokens []string, window int) float64 {
	if window <= 0 || len(tokens) < window {
		return 0.0
	}

	counts := make(map[string]int, window)
	distinct := 0
	var sum float64

	for i, tok := range tokens {
		if counts[tok] == 0 {
			distinct++
		}
		counts[tok]++

		if i >= window {
			old := tokens[i-window]
			counts[old]--
			if counts[old] == 0 {
				distinct--
			}
		}

		if i >= window-1 {
			sum += float64(distinct) / float64(window)
		}
	}

	return sum / float64(len(tokens)-window+1)
}

// Median возвращает точную медиану: для четного количества — среднее
// двух средних значений. Вход должен быть отсортирован.
func Median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0.0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2.0
}
