package policy

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"

	"github.com/chazu/inliner/il"
)

// Memo caches the decisions of another policy so each method is judged at
// most once while it stays in the cache. Size the cache to the number of
// methods in the run to avoid evictions.
type Memo struct {
	inner     Policy
	decisions *lru.Cache[*il.Method, bool]
	consulted int
}

// NewMemo wraps inner with a decision cache of the given capacity. A
// capacity below one is raised to one.
func NewMemo(inner Policy, capacity int) (*Memo, error) {
	if inner == nil {
		return nil, errors.New("policy: nil inner policy")
	}
	if capacity < 1 {
		capacity = 1
	}
	cache, err := lru.New[*il.Method, bool](capacity)
	if err != nil {
		return nil, errors.Wrap(err, "policy: create decision cache")
	}
	return &Memo{inner: inner, decisions: cache}, nil
}

// ShouldInline implements Policy.
func (m *Memo) ShouldInline(method *il.Method) bool {
	if ok, hit := m.decisions.Get(method); hit {
		return ok
	}
	ok := m.inner.ShouldInline(method)
	m.consulted++
	m.decisions.Add(method, ok)
	return ok
}

// Consulted returns how many times the inner policy was asked.
func (m *Memo) Consulted() int {
	return m.consulted
}
