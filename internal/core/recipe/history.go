package recipe

import (
	"iter"
	"strconv"
	"sync"
	"time"
)

const (
	previewLength = 100
	previewSuffix = "..."
)

// HistoryStore 單一工作階段的生成紀錄，只能追加
type HistoryStore struct {
	mu      sync.RWMutex
	records []RecipeRecord
}

// NewHistoryStore 創建空的紀錄
func NewHistoryStore() *HistoryStore {
	return &HistoryStore{}
}

// Append 追加一筆紀錄
func (h *HistoryStore) Append(rec RecipeRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, rec)
}

// Len 紀錄筆數
func (h *HistoryStore) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.records)
}

// Records 依加入順序回傳副本
func (h *HistoryStore) Records() []RecipeRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]RecipeRecord, len(h.records))
	copy(out, h.records)
	return out
}

// HistoryEntry 側欄顯示用的一筆摘要
type HistoryEntry struct {
	Position  int       `json:"position"`
	MealType  MealType  `json:"meal_type"`
	Timestamp time.Time `json:"timestamp"`
	Preview   string    `json:"preview"`
}

// Summary 單行摘要，例如 "1. Breakfast at 2026-10-17T08:30:00Z"
func (e HistoryEntry) Summary() string {
	return strconv.Itoa(e.Position) + ". " + string(e.MealType) + " at " + e.Timestamp.Format(time.RFC3339)
}

// Recent 由新到舊走訪紀錄。每次 range 都重新取快照，因此可重複走訪。
func (h *HistoryStore) Recent() iter.Seq[HistoryEntry] {
	return func(yield func(HistoryEntry) bool) {
		h.mu.RLock()
		snapshot := h.records[:len(h.records):len(h.records)]
		h.mu.RUnlock()

		for i := len(snapshot) - 1; i >= 0; i-- {
			rec := snapshot[i]
			entry := HistoryEntry{
				Position:  len(snapshot) - i,
				MealType:  rec.MealType,
				Timestamp: rec.Timestamp,
				Preview:   Preview(rec.RecipeText),
			}
			if !yield(entry) {
				return
			}
		}
	}
}

// Preview 取前 100 個字元並一律加上 "..."
func Preview(text string) string {
	runes := []rune(text)
	if len(runes) > previewLength {
		runes = runes[:previewLength]
	}
	return string(runes) + previewSuffix
}
