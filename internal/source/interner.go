package source

import (
	"slices"
	"sync"
)

type StringID uint32

const NoStringID StringID = 0

type Interner struct {
	mu    sync.RWMutex
	byID  []string
	index map[string]StringID
}

func NewInterner() *Interner {
	return &Interner{
		byID:  []string{""},
		index: map[string]StringID{"": 0},
	}
}




func (i *Interner) Intern(s string) StringID {

	i.mu.RLock()
	if id, ok := i.index[s]; ok {
		i.mu.RUnlock()
		return id
	}
	i.mu.RUnlock()


	cpy := string([]byte(s))


	i.mu.Lock()

	if id, ok := i.index[cpy]; ok {
		i.mu.Unlock()
		return id
	}
	id := StringID(len(i.byID))
	i.byID = append(i.byID, cpy)
	i.index[cpy] = id
	i.mu.Unlock()
	return id
}



func (i *Interner) InternBytes(b []byte) StringID {
	return i.Intern(string(b))
}




func (i *Interner) Lookup(id StringID) (string, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if int(id) < 0 || int(id) >= len(i.byID) {
		return "", false
	}
	return i.byID[id], true
}



func (i *Interner) MustLookup(id StringID) string {
	s, ok := i.Lookup(id)
	if !ok {
		panic("invalid string ID")
	}
	return s
}



func (i *Interner) Has(id StringID) bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return int(id) >= 0 && int(id) < len(i.byID)
}




func (i *Interner) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.byID)
}



func (i *Interner) Snapshot() []string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return slices.Clone(i.byID)
}
