package tokenizer

import "sync"

// Counter counts tokens for a unit of text. Implementations must be
// deterministic for a fixed Identity so results can be memoized.
type Counter interface {
	Count(text string) (int, error)
	Identity() string
}

// Memo wraps a Counter with an in-memory cache. Safe for concurrent use.
type Memo struct {
	inner  Counter
	mu     sync.RWMutex
	counts map[string]int
}

func NewMemo(inner Counter) *Memo {
	return &Memo{
		inner:  inner,
		counts: make(map[string]int),
	}
}

func (m *Memo) Count(text string) (int, error) {
	m.mu.RLock()
	n, ok := m.counts[text]
	m.mu.RUnlock()
	if ok {
		return n, nil
	}

	n, err := m.inner.Count(text)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	m.counts[text] = n
	m.mu.Unlock()
	return n, nil
}

func (m *Memo) Identity() string {
	return m.inner.Identity()
}
