package binding

// table is a slot arena addressed by generation-checked handles. The low
// 32 bits of a handle hold slot+1 (so zero is never valid), the high 32
// bits the slot's generation when the handle was issued.
type table[T any] struct {
	slots []slot[T]
	free  []uint32
	live  int
}

type slot[T any] struct {
	gen   uint32
	used  bool
	value T
}

func makeHandle(index, gen uint32) uint64 {
	return uint64(gen)<<32 | uint64(index+1)
}

func splitHandle(h uint64) (index, gen uint32, ok bool) {
	low := uint32(h)
	if low == 0 {
		return 0, 0, false
	}
	return low - 1, uint32(h >> 32), true
}

func (t *table[T]) put(v T) uint64 {
	var index uint32
	if n := len(t.free); n > 0 {
		index = t.free[n-1]
		t.free = t.free[:n-1]
	} else {
		index = uint32(len(t.slots))
		t.slots = append(t.slots, slot[T]{})
	}
	s := &t.slots[index]
	s.used = true
	s.value = v
	t.live++
	return makeHandle(index, s.gen)
}

func (t *table[T]) get(h uint64) (T, bool) {
	var zero T
	index, gen, ok := splitHandle(h)
	if !ok || int(index) >= len(t.slots) {
		return zero, false
	}
	s := &t.slots[index]
	if !s.used || s.gen != gen {
		return zero, false
	}
	return s.value, true
}

// remove releases the slot and bumps its generation so every handle
// issued for it becomes invalid.
func (t *table[T]) remove(h uint64) (T, bool) {
	v, ok := t.get(h)
	if !ok {
		return v, false
	}
	index, _, _ := splitHandle(h)
	var zero T
	s := &t.slots[index]
	s.used = false
	s.value = zero
	s.gen++
	t.free = append(t.free, index)
	t.live--
	return v, true
}
