package session

import (
	"sync"
	"time"

	"macro-recipe-generator/internal/core/recipe"
	"macro-recipe-generator/internal/infrastructure/config"
	"macro-recipe-generator/internal/pkg/common"

	"go.uber.org/zap"
)

// Session 一位使用者的互動期間，擁有自己的 HistoryStore
type Session struct {
	ID        string
	CreatedAt time.Time
	History   *recipe.HistoryStore

	generating sync.Mutex
	lastAccess time.Time
}

// TryBegin 開始一次生成；已有生成進行中時回傳 false
func (s *Session) TryBegin() bool {
	return s.generating.TryLock()
}

// End 結束 TryBegin 開始的生成
func (s *Session) End() {
	s.generating.Unlock()
}

// busy 是否有生成進行中；生成中的工作階段不會過期或被淘汰
func (s *Session) busy() bool {
	if s.generating.TryLock() {
		s.generating.Unlock()
		return false
	}
	return true
}

// Manager 工作階段管理器
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	idle     time.Duration
	max      int
	now      func() time.Time
	done     chan struct{}
	stats    managerStats
}

type managerStats struct {
	created int64
	expired int64
	evicted int64
	ended   int64
}

// Stats 管理器統計
type Stats struct {
	Active  int   `json:"active"`
	Created int64 `json:"created"`
	Expired int64 `json:"expired"`
	Evicted int64 `json:"evicted"`
	Ended   int64 `json:"ended"`
}

// NewManager 創建管理器並啟動過期清理
func NewManager(cfg config.SessionConfig) *Manager {
	m := newManager(cfg, time.Now)
	go m.startCleanup(cfg.CleanupInterval)

	common.LogInfo("Session manager initialized",
		zap.Duration("idle_timeout", cfg.IdleTimeout),
		zap.Duration("cleanup_interval", cfg.CleanupInterval),
		zap.Int("max_sessions", cfg.MaxSessions),
	)
	return m
}

func newManager(cfg config.SessionConfig, now func() time.Time) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		idle:     cfg.IdleTimeout,
		max:      cfg.MaxSessions,
		now:      now,
		done:     make(chan struct{}),
	}
}

// Get 取得未過期的工作階段並更新存取時間
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	now := m.now()
	if now.Sub(s.lastAccess) > m.idle && !s.busy() {
		delete(m.sessions, id)
		m.stats.expired++
		return nil, false
	}
	s.lastAccess = now
	return s, true
}

// Create 建立新的工作階段，數量達上限時淘汰最久未使用者
func (m *Manager) Create() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sessions) >= m.max {
		m.cleanup()
		if len(m.sessions) >= m.max {
			m.evictLRU()
		}
	}

	now := m.now()
	s := &Session{
		ID:         common.GenerateUUID(),
		CreatedAt:  now,
		History:    recipe.NewHistoryStore(),
		lastAccess: now,
	}
	m.sessions[s.ID] = s
	m.stats.created++

	common.LogDebug("Session created", zap.String("session_id", s.ID))
	return s
}

// GetOrCreate 找不到或已過期時建立新的工作階段
func (m *Manager) GetOrCreate(id string) (*Session, bool) {
	if id != "" {
		if s, ok := m.Get(id); ok {
			return s, false
		}
	}
	return m.Create(), true
}

// End 結束工作階段，其紀錄隨之丟棄
func (m *Manager) End(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return false
	}
	delete(m.sessions, id)
	m.stats.ended++
	return true
}

// Len 目前的工作階段數量
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Stats 取得統計資訊
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{
		Active:  len(m.sessions),
		Created: m.stats.created,
		Expired: m.stats.expired,
		Evicted: m.stats.evicted,
		Ended:   m.stats.ended,
	}
}

// startCleanup 定期清理過期工作階段
func (m *Manager) startCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.mu.Lock()
			count := m.cleanup()
			remaining := len(m.sessions)
			m.mu.Unlock()
			if count > 0 {
				common.LogInfo("Expired sessions cleaned up",
					zap.Int("count", count),
					zap.Int("remaining", remaining),
				)
			}
		case <-m.done:
			return
		}
	}
}

// cleanup 移除過期工作階段，呼叫端需持有鎖
func (m *Manager) cleanup() int {
	now := m.now()
	count := 0
	for id, s := range m.sessions {
		if now.Sub(s.lastAccess) > m.idle && !s.busy() {
			delete(m.sessions, id)
			count++
		}
	}
	m.stats.expired += int64(count)
	return count
}

// evictLRU 淘汰最久未使用且閒置的工作階段，呼叫端需持有鎖。
// 全部都在生成中時不淘汰，數量可暫時超過上限。
func (m *Manager) evictLRU() {
	var oldestID string
	var oldest time.Time
	for id, s := range m.sessions {
		if s.busy() {
			continue
		}
		if oldestID == "" || s.lastAccess.Before(oldest) {
			oldestID = id
			oldest = s.lastAccess
		}
	}
	if oldestID != "" {
		delete(m.sessions, oldestID)
		m.stats.evicted++
		common.LogInfo("Session evicted (LRU)", zap.String("session_id", oldestID))
	}
}

// Close 停止清理並丟棄所有工作階段
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	select {
	case <-m.done:
		return nil
	default:
		close(m.done)
	}
	common.LogInfo("Session manager closed",
		zap.Int("active", len(m.sessions)),
		zap.Int64("created", m.stats.created),
		zap.Int64("expired", m.stats.expired),
	)
	m.sessions = make(map[string]*Session)
	return nil
}
