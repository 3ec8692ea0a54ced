package exporter

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"telegram-chat-analyzer/internal/domain"
)

// ConsoleExporter выводит краткую сводку агрегатов в консоль.
type ConsoleExporter struct{}

// NewConsoleExporter создает новый экземпляр ConsoleExporter.
func NewConsoleExporter() *ConsoleExporter {
	return &ConsoleExporter{}
}

// PrintSummary печатает сводку и таблицу топ-авторов.
// Выравнивание учитывает ширину рун: имена бывают кириллицей и эмодзи.
func (e *ConsoleExporter) PrintSummary(report *domain.AggregateReport) {
	fmt.Println("--- Сводка по чату ---")
	fmt.Printf("Всего сообщений: %d\n", report.Summary.TotalMessages)
	fmt.Printf("Ответы: %d (%.2f%%)\n", report.Summary.Replies.Count, report.Summary.Replies.Pct)
	fmt.Printf("С реакциями: %d (%.2f%%)\n",
		report.Summary.MessagesWithReactions.Count, report.Summary.MessagesWithReactions.Pct)
	fmt.Printf("С медиа: %d (%.2f%%)\n", report.Summary.Media.Count, report.Summary.Media.Pct)

	if len(report.TopAuthors) == 0 {
		return
	}

	fmt.Println("--- Топ авторов ---")
	nameWidth := 0
	for _, a := range report.TopAuthors {
		if w := runewidth.StringWidth(a.Username); w > nameWidth {
			nameWidth = w
		}
	}
	for i, a := range report.TopAuthors {
		padding := strings.Repeat(" ", nameWidth-runewidth.StringWidth(a.Username))
		fmt.Printf("%2d. %s%s  %d\n", i+1, a.Username, padding, a.Count)
	}
}
