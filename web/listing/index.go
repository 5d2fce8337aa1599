package listing

import (
	"sync"
	"time"

	"elitehub/web/db"

	"github.com/google/btree"
)

// Entry is one approved provider as shown in a directory listing.
type Entry struct {
	ID            string          `json:"id"`
	UID           string          `json:"uid"`
	Type          db.ProviderType `json:"type"`
	Tier          db.Tier         `json:"tier,omitempty"`
	TierExpiresAt *time.Time      `json:"tier_expires_at,omitempty"`
	ApprovedAt    time.Time       `json:"approved_at"`
	Profile       any             `json:"profile"`
}

// Less puts higher tiers first, then earlier approvals, then ids.
func (a Entry) Less(b btree.Item) bool {
	o := b.(Entry)
	if ra, rb := a.Tier.Rank(), o.Tier.Rank(); ra != rb {
		return ra > rb
	}
	if !a.ApprovedAt.Equal(o.ApprovedAt) {
		return a.ApprovedAt.Before(o.ApprovedAt)
	}
	return a.ID < o.ID
}

// Index keeps one ordered tree of entries per provider type.
type Index struct {
	mu    sync.RWMutex
	trees map[db.ProviderType]*btree.BTree
	byID  map[string]Entry
}

func NewIndex() *Index {
	return &Index{
		trees: make(map[db.ProviderType]*btree.BTree),
		byID:  make(map[string]Entry),
	}
}

func (x *Index) tree(t db.ProviderType) *btree.BTree {
	tr, ok := x.trees[t]
	if !ok {
		tr = btree.New(8)
		x.trees[t] = tr
	}
	return tr
}

// Put inserts e, replacing any entry with the same id.
func (x *Index) Put(e Entry) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if old, ok := x.byID[e.ID]; ok {
		x.tree(old.Type).Delete(old)
	}
	x.tree(e.Type).ReplaceOrInsert(e)
	x.byID[e.ID] = e
}

func (x *Index) Remove(id string) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if old, ok := x.byID[id]; ok {
		x.tree(old.Type).Delete(old)
		delete(x.byID, id)
	}
}

func (x *Index) Get(id string) (Entry, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	e, ok := x.byID[id]
	return e, ok
}

// List returns up to limit entries of type t after skipping offset.
// A limit <= 0 means no limit.
func (x *Index) List(t db.ProviderType, offset, limit int) []Entry {
	x.mu.RLock()
	defer x.mu.RUnlock()

	out := []Entry{}
	tr, ok := x.trees[t]
	if !ok {
		return out
	}
	i := 0
	tr.Ascend(func(it btree.Item) bool {
		if i >= offset {
			out = append(out, it.(Entry))
		}
		i++
		return limit <= 0 || len(out) < limit
	})
	return out
}

func (x *Index) Len(t db.ProviderType) int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if tr, ok := x.trees[t]; ok {
		return tr.Len()
	}
	return 0
}

// Reset replaces the whole index content.
func (x *Index) Reset(entries []Entry) {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.trees = make(map[db.ProviderType]*btree.BTree)
	x.byID = make(map[string]Entry, len(entries))
	for _, e := range entries {
		x.tree(e.Type).ReplaceOrInsert(e)
		x.byID[e.ID] = e
	}
}
