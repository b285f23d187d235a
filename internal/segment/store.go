package segment

import (
	"container/list"
	"sync/atomic"

	"github.com/Borislavv/go-ash-segments/model"
)

// entry is one stored record. fetches is the private fetch counter used for
// invalidation; it is reset on every add, including overwrites.
type entry struct {
	key     Key
	raw     any
	record  *model.Record
	fetches int
}

// store is the access-ordered key->record collection: a doubly linked list
// for recency plus a hash index into it. Front is the most recently used
// end, Back the least recently used one. The list and the index always hold
// the same key set.
type store struct {
	items map[Key]*list.Element
	lru   *list.List
	len   int64 // mirrored into an atomic so telemetry can read it from another goroutine
}

func newStore() *store {
	return &store{items: make(map[Key]*list.Element), lru: list.New()}
}

func (st *store) Len() int64 { return atomic.LoadInt64(&st.len) }

func (st *store) get(k Key) (*list.Element, bool) {
	el, ok := st.items[k]
	return el, ok
}

// pushFront inserts a new entry at the MRU end.
func (st *store) pushFront(e *entry) *list.Element {
	el := st.lru.PushFront(e)
	st.items[e.key] = el
	atomic.AddInt64(&st.len, 1)
	return el
}

// touch moves an entry to the MRU end; the relative order of the rest is kept.
func (st *store) touch(el *list.Element) { st.lru.MoveToFront(el) }

// remove unlinks an entry. It is a no-op for an element already removed.
func (st *store) remove(el *list.Element) bool {
	e := el.Value.(*entry)
	if cur, ok := st.items[e.key]; !ok || cur != el {
		return false
	}
	delete(st.items, e.key)
	st.lru.Remove(el)
	atomic.AddInt64(&st.len, -1)
	return true
}

// popTail removes and returns the LRU entry.
func (st *store) popTail() (*entry, bool) {
	el := st.lru.Back()
	if el == nil {
		return nil, false
	}
	e := el.Value.(*entry)
	st.remove(el)
	return e, true
}

func (st *store) peekHead() (*entry, bool) {
	if el := st.lru.Front(); el != nil {
		return el.Value.(*entry), true
	}
	return nil, false
}

func (st *store) peekTail() (*entry, bool) {
	if el := st.lru.Back(); el != nil {
		return el.Value.(*entry), true
	}
	return nil, false
}

// walk visits entries MRU->LRU (or LRU->MRU when fromTail) until fn returns false.
// The next element is captured before fn runs, so fn may remove the current one.
func (st *store) walk(fromTail bool, fn func(el *list.Element) bool) {
	if fromTail {
		for el := st.lru.Back(); el != nil; {
			prev := el.Prev()
			if !fn(el) {
				return
			}
			el = prev
		}
		return
	}
	for el := st.lru.Front(); el != nil; {
		next := el.Next()
		if !fn(el) {
			return
		}
		el = next
	}
}

// clear drops everything and returns the number of removed entries.
func (st *store) clear() (items int64) {
	items = atomic.LoadInt64(&st.len)
	st.items = make(map[Key]*list.Element, items)
	st.lru.Init()
	atomic.StoreInt64(&st.len, 0)
	return items
}
