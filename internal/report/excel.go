package report

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"telegram-chat-analyzer/internal/core/services"
	"telegram-chat-analyzer/internal/domain"
)

const messageType = "message"

// excelRow — одна строка листа "Топы": участник и его активность.
type excelRow struct {
	FromID   string
	Name     string
	Count    int
	AvgWeek  float64
	AvgMonth float64
	N1       int
	N2       int
	M        int
}

// ExcelBuilder строит многостраничный Excel-отчет из нормализованного экспорта.
type ExcelBuilder struct{}

// NewExcelBuilder создает новый экземпляр ExcelBuilder.
func NewExcelBuilder() *ExcelBuilder {
	return &ExcelBuilder{}
}

// Build записывает отчет по экспорту в файл outPath.
// Листы: Активности (дни/часы), Топы (участники и помесячная динамика),
// Медиа, Молчуны (< 10 сообщений) и Общее.
func (b *ExcelBuilder) Build(export *domain.Export, src domain.SourceRef, outPath string) error {
	byDay := map[string]int{}
	byHour := map[int]int{}
	byUser := map[string]int{}
	byUserMonth := map[string]map[string]int{}
	namesByUser := map[string]map[string]int{}
	mediaCounts := map[string]int{}
	monthsSet := map[string]bool{}

	anomalyNoDate := 0
	anomalyNoFrom := 0
	total := 0
	minDay, maxDay := "", ""

	for i := range export.Messages {
		m := &export.Messages[i]
		if m.Type != messageType {
			continue
		}
		dateNorm := m.Norm.DateNorm
		if dateNorm == "" || len(dateNorm) < 13 {
			anomalyNoDate++
			continue
		}
		if m.FromID == "" {
			anomalyNoFrom++
			continue
		}

		day := dateNorm[:10]
		month := dateNorm[:7]
		hour := 0
		fmt.Sscanf(dateNorm[11:13], "%d", &hour)

		total++
		byDay[day]++
		byHour[hour]++
		byUser[m.FromID]++
		monthsSet[month] = true
		if byUserMonth[m.FromID] == nil {
			byUserMonth[m.FromID] = map[string]int{}
		}
		byUserMonth[m.FromID][month]++
		if m.From != "" {
			if namesByUser[m.FromID] == nil {
				namesByUser[m.FromID] = map[string]int{}
			}
			namesByUser[m.FromID][m.From]++
		}
		if m.Norm.MediaCat != "" {
			mediaCounts[m.Norm.MediaCat]++
		}

		if minDay == "" || day < minDay {
			minDay = day
		}
		if day > maxDay {
			maxDay = day
		}
	}

	if total == 0 {
		return fmt.Errorf("после фильтрации не осталось сообщений для Excel-отчета")
	}

	totalDays := daysBetween(minDay, maxDay) + 1
	weeksFloat := float64(totalDays) / 7.0
	monthsFloat := float64(totalDays) / 30.4375

	rows := make([]excelRow, 0, len(byUser))
	for id, count := range byUser {
		r := excelRow{
			FromID:   id,
			Name:     chooseDisplayName(namesByUser[id]),
			Count:    count,
			AvgWeek:  round2(float64(count) / weeksFloat),
			AvgMonth: round2(float64(count) / monthsFloat),
		}
		if r.AvgWeek >= 100 {
			r.N1 = 1
		}
		if r.AvgMonth >= 1000 {
			r.N2 = 1
		}
		if r.Count > 10000 {
			r.M = 1
		}
		rows = append(rows, r)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].FromID < rows[j].FromID
	})

	months := make([]string, 0, len(monthsSet))
	for m := range monthsSet {
		months = append(months, m)
	}
	sort.Strings(months)

	f := excelize.NewFile()
	defer f.Close()

	b.writeActivity(f, byDay, byHour)
	b.writeTops(f, rows, byUserMonth, months)
	b.writeMedia(f, mediaCounts)
	b.writeQuiet(f, rows)
	b.writeSummary(f, export, src, total, len(rows), minDay, maxDay, totalDays,
		weeksFloat, monthsFloat, anomalyNoDate, anomalyNoFrom)

	// Лист по умолчанию Sheet1 не нужен.
	f.DeleteSheet("Sheet1")
	if idx, err := f.GetSheetIndex("Активности"); err == nil {
		f.SetActiveSheet(idx)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("failed to create report dir: %w", err)
	}
	if err := f.SaveAs(outPath); err != nil {
		return fmt.Errorf("failed to save excel report: %w", err)
	}
	return nil
}

func (b *ExcelBuilder) writeActivity(f *excelize.File, byDay map[string]int, byHour map[int]int) {
	const sheet = "Активности"
	f.NewSheet(sheet)

	title := b.titleStyle(f)

	row := 1
	f.SetCellValue(sheet, fmt.Sprintf("A%d", row), "Дни")
	f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), title)
	row++
	f.SetCellValue(sheet, fmt.Sprintf("A%d", row), "Дата")
	f.SetCellValue(sheet, fmt.Sprintf("B%d", row), "Сообщений")
	row++

	days := make([]string, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Strings(days)
	for _, d := range days {
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), d)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), byDay[d])
		row++
	}

	row += 2
	f.SetCellValue(sheet, fmt.Sprintf("A%d", row), "Часы")
	f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), title)
	row++
	f.SetCellValue(sheet, fmt.Sprintf("A%d", row), "Час")
	f.SetCellValue(sheet, fmt.Sprintf("B%d", row), "Сообщений")
	row++
	for h := 0; h < 24; h++ {
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), h)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), byHour[h])
		row++
	}

	f.SetColWidth(sheet, "A", "A", 12)
	f.SetColWidth(sheet, "B", "B", 14)
}

func (b *ExcelBuilder) writeTops(f *excelize.File, rows []excelRow, byUserMonth map[string]map[string]int, months []string) {
	const sheet = "Топы"
	f.NewSheet(sheet)

	title := b.titleStyle(f)
	header := b.headerStyle(f)

	row := 1
	f.SetCellValue(sheet, fmt.Sprintf("A%d", row), "Итог по участникам")
	f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), title)
	row++

	headers := []string{"FromID", "Имя", "Сообщений", "AvgWeek", "AvgMonth", "N1", "N2", "M"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, header)
	}
	row++
	for _, r := range rows {
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), r.FromID)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), r.Name)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), r.Count)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), r.AvgWeek)
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), r.AvgMonth)
		f.SetCellValue(sheet, fmt.Sprintf("F%d", row), r.N1)
		f.SetCellValue(sheet, fmt.Sprintf("G%d", row), r.N2)
		f.SetCellValue(sheet, fmt.Sprintf("H%d", row), r.M)
		row++
	}

	// Кросс-таблица: участник × месяц, плюс итоговый столбец.
	row += 2
	f.SetCellValue(sheet, fmt.Sprintf("A%d", row), "Кросс-таблица (участник × месяц)")
	f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), title)
	row++
	wideHeaders := append([]string{"FromID", "Имя"}, months...)
	wideHeaders = append(wideHeaders, "Всего")
	for i, h := range wideHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, header)
	}
	row++
	for _, r := range rows {
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), r.FromID)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), r.Name)
		for i, m := range months {
			cell, _ := excelize.CoordinatesToCellName(i+3, row)
			f.SetCellValue(sheet, cell, byUserMonth[r.FromID][m])
		}
		cell, _ := excelize.CoordinatesToCellName(len(months)+3, row)
		f.SetCellValue(sheet, cell, r.Count)
		row++
	}

	f.SetColWidth(sheet, "A", "A", 14)
	f.SetColWidth(sheet, "B", "B", 24)
	f.SetColWidth(sheet, "C", "E", 12)
}

func (b *ExcelBuilder) writeMedia(f *excelize.File, mediaCounts map[string]int) {
	const sheet = "Медиа"
	f.NewSheet(sheet)

	f.SetCellValue(sheet, "A1", "Категория")
	f.SetCellValue(sheet, "B1", "Сообщений")

	type mediaRow struct {
		cat   string
		count int
	}
	rows := make([]mediaRow, 0, len(services.MediaCategoriesOrder))
	for _, cat := range services.MediaCategoriesOrder {
		rows = append(rows, mediaRow{cat: cat, count: mediaCounts[cat]})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].count > rows[j].count })

	for i, r := range rows {
		f.SetCellValue(sheet, fmt.Sprintf("A%d", i+2), r.cat)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", i+2), r.count)
	}
	f.SetColWidth(sheet, "A", "A", 20)
	f.SetColWidth(sheet, "B", "B", 14)
}

func (b *ExcelBuilder) writeQuiet(f *excelize.File, rows []excelRow) {
	const sheet = "Молчуны"
	f.NewSheet(sheet)

	f.SetCellValue(sheet, "A1", "FromID")
	f.SetCellValue(sheet, "B1", "Имя")
	f.SetCellValue(sheet, "C1", "Сообщений")

	quiet := make([]excelRow, 0)
	for _, r := range rows {
		if r.Count < 10 {
			quiet = append(quiet, r)
		}
	}
	sort.SliceStable(quiet, func(i, j int) bool { return quiet[i].Count < quiet[j].Count })

	for i, r := range quiet {
		f.SetCellValue(sheet, fmt.Sprintf("A%d", i+2), r.FromID)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", i+2), r.Name)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", i+2), r.Count)
	}
	f.SetColWidth(sheet, "A", "A", 14)
	f.SetColWidth(sheet, "B", "B", 24)
	f.SetColWidth(sheet, "C", "C", 14)
}

func (b *ExcelBuilder) writeSummary(
	f *excelize.File,
	export *domain.Export,
	src domain.SourceRef,
	total, uniqueUsers int,
	minDay, maxDay string,
	totalDays int,
	weeksFloat, monthsFloat float64,
	anomalyNoDate, anomalyNoFrom int,
) {
	const sheet = "Общее"
	f.NewSheet(sheet)

	title := b.titleStyle(f)

	tzNote := "UTC+0"
	for _, entry := range export.Meta {
		if entry.ByNormalize != nil && entry.ByNormalize.Note != "" {
			tzNote = entry.ByNormalize.Note
		}
	}

	row := 1
	f.SetCellValue(sheet, fmt.Sprintf("A%d", row), "Параметры")
	f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), title)
	row++
	params := [][2]string{
		{"Имя входного файла", src.Name},
		{"Дата/время генерации", time.Now().Format("2006-01-02 15:04:05")},
		{"Часовой пояс", tzNote},
		{"Период", fmt.Sprintf("%s — %s", minDay, maxDay)},
	}
	for _, p := range params {
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), p[0])
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), p[1])
		row++
	}

	row++
	f.SetCellValue(sheet, fmt.Sprintf("A%d", row), "Итоги по чату")
	f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), title)
	row++
	avgPerDay := 0.0
	if totalDays > 0 {
		avgPerDay = float64(total) / float64(totalDays)
	}
	totals := []struct {
		label string
		value any
	}{
		{"Всего сообщений", total},
		{"Уникальных участников", uniqueUsers},
		{"Дней в периоде", totalDays},
		{"Среднее сообщений в день", round2(avgPerDay)},
		{"Недели в периоде", round2(weeksFloat)},
		{"Месяцы в периоде", round2(monthsFloat)},
	}
	for _, t := range totals {
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), t.label)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), t.value)
		row++
	}

	row++
	f.SetCellValue(sheet, fmt.Sprintf("A%d", row), "Валидации / аномалии")
	f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), title)
	row++
	anomalies := []struct {
		label string
		count int
	}{
		{"Отсутствующая/невалидная дата", anomalyNoDate},
		{"Пустой/некорректный from_id", anomalyNoFrom},
	}
	for _, a := range anomalies {
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), a.label)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), a.count)
		row++
	}

	f.SetColWidth(sheet, "A", "A", 40)
	f.SetColWidth(sheet, "B", "B", 40)
}

func (b *ExcelBuilder) titleStyle(f *excelize.File) int {
	style, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 12},
	})
	return style
}

func (b *ExcelBuilder) headerStyle(f *excelize.File) int {
	style, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#F2F2F2"}},
	})
	return style
}

// chooseDisplayName выбирает стабильное имя участника: самое частое непустое,
// при равенстве — лексикографически первое.
func chooseDisplayName(names map[string]int) string {
	best := ""
	bestCount := 0
	for name, count := range names {
		if count > bestCount || (count == bestCount && (best == "" || name < best)) {
			best = name
			bestCount = count
		}
	}
	return best
}

// daysBetween считает число дней между двумя датами вида YYYY-MM-DD.
func daysBetween(from, to string) int {
	a, err1 := time.Parse("2006-01-02", from)
	b, err2 := time.Parse("2006-01-02", to)
	if err1 != nil || err2 != nil {
		return 0
	}
	return int(b.Sub(a).Hours() / 24)
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
