package services

import "sort"

// counterEntry — пара "ключ-счетчик" в ранжированных выборках.
type counterEntry struct {
	Key   string
	Count int
}

// orderedCounter — счетчик, помнящий порядок первого появления ключа.
// Все выборки "топ-N" сортируются по убыванию устойчиво, поэтому при равных
// значениях сохраняется порядок появления, без навязывания вторичного ключа.
type orderedCounter struct {
	counts map[string]int
	order  []string
}

func newOrderedCounter() *orderedCounter {
	return &orderedCounter{counts: make(map[string]int)}
}

// Add увеличивает счетчик ключа на n.
func (c *orderedCounter) Add(key string, n int) {
	if _, ok := c.counts[key]; !ok {
		c.order = append(c.order, key)
	}
	c.counts[key] += n
}

// Get возвращает текущее значение счетчика.
func (c *orderedCounter) Get(key string) int {
	return c.counts[key]
}

// Len возвращает количество различных ключей.
func (c *orderedCounter) Len() int {
	return len(c.order)
}

// Total возвращает сумму всех счетчиков.
func (c *orderedCounter) Total() int {
	total := 0
	for _, v := range c.counts {
		total += v
	}
	return total
}

// Sorted возвращает все пары по убыванию счетчика (устойчиво).
func (c *orderedCounter) Sorted() []counterEntry {
	entries := make([]counterEntry, 0, len(c.order))
	for _, k := range c.order {
		entries = append(entries, counterEntry{Key: k, Count: c.counts[k]})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Count > entries[j].Count
	})
	return entries
}

// Top возвращает первые n пар по убыванию счетчика.
func (c *orderedCounter) Top(n int) []counterEntry {
	entries := c.Sorted()
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}
