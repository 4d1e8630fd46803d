package host

// Interner assigns dense small integers to comparable keys in first-seen
// order. IDs are stable for the lifetime of the interner.
type Interner[K comparable] struct {
	ids  map[K]int
	keys []K
}

// NewInterner creates an empty interner.
func NewInterner[K comparable]() *Interner[K] {
	return &Interner[K]{ids: make(map[K]int)}
}

// ID returns the id of k, assigning the next free one if k is new.
func (in *Interner[K]) ID(k K) int {
	if id, ok := in.ids[k]; ok {
		return id
	}
	id := len(in.keys)
	in.ids[k] = id
	in.keys = append(in.keys, k)
	return id
}

// Lookup returns the id of k without assigning one.
func (in *Interner[K]) Lookup(k K) (int, bool) {
	id, ok := in.ids[k]
	return id, ok
}

// Key returns the key interned under id.
func (in *Interner[K]) Key(id int) K { return in.keys[id] }

// Len returns the number of interned keys.
func (in *Interner[K]) Len() int { return len(in.keys) }
