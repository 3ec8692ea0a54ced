// Package exportfile реализует соглашения об именовании файлов экспорта:
// часовой сдвиг в квадратных скобках (export[+3].json) и поиск самого
// свежего файла в каталоге.
package exportfile

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var filenameRe = regexp.MustCompile(`^(?P<prefix>.*)\[(?P<shift>[+-]?\d+)\]\.json$`)

// ParseShift извлекает часовой сдвиг из имени файла вида name[+3].json.
// Возвращает (0, false), если имя не содержит сдвига.
func ParseShift(path string) (int, bool) {
	m := filenameRe.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return 0, false
	}
	shift, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, false
	}
	return shift, true
}

// ReplaceShiftWithZero возвращает имя файла с обнуленным сдвигом.
// Нормализованный файл всегда именуется name[0].json: сдвиг уже применен.
func ReplaceShiftWithZero(path string) string {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	m := filenameRe.FindStringSubmatch(base)
	if m == nil {
		ext := filepath.Ext(base)
		stem := strings.TrimSuffix(base, ext)
		return filepath.Join(dir, stem+"[0]"+ext)
	}
	return filepath.Join(dir, m[1]+"[0].json")
}

// FindNewestJSON возвращает путь к самому свежему *.json в каталоге.
// Если explicit непустой, проверяется и возвращается именно он.
func FindNewestJSON(dir, explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("входной файл недоступен: %w", err)
		}
		return explicit, nil
	}

	entries, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return "", fmt.Errorf("failed to scan %s: %w", dir, err)
	}
	if len(entries) == 0 {
		return "", fmt.Errorf("не найден *.json в %s: поместите экспорт Telegram в этот каталог", dir)
	}

	sort.Slice(entries, func(i, j int) bool {
		return mtime(entries[i]) > mtime(entries[j])
	})
	return entries[0], nil
}

// FindNormalizedJSON возвращает путь к самому свежему нормализованному файлу
// ([0].json) в каталоге. Отсутствие такого файла — ошибка предусловия:
// вызывающему следует сперва запустить нормализацию.
func FindNormalizedJSON(dir, explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("входной файл недоступен: %w", err)
		}
		return explicit, nil
	}

	entries, err := filepath.Glob(filepath.Join(dir, "*[0].json"))
	if err != nil {
		return "", fmt.Errorf("failed to scan %s: %w", dir, err)
	}
	if len(entries) == 0 {
		return "", fmt.Errorf("не найден нормализованный файл ([0].json) в %s: запустите 'normalize' или 'all' сначала", dir)
	}

	sort.Slice(entries, func(i, j int) bool {
		return mtime(entries[i]) > mtime(entries[j])
	})
	return entries[0], nil
}

func mtime(path string) int64 {
	fi, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return fi.ModTime().UnixNano()
}
