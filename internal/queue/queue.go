// Package queue provides a bounded max-heap used to keep the k nearest
// candidates of a query.
package queue

// Item is a candidate identifier with its distance to the query.
type Item struct {
	ID       uint64
	Distance float64
}

// worse reports whether a ranks after b: larger distance first, then
// larger ID.
func worse(a, b Item) bool {
	if a.Distance != b.Distance {
		return a.Distance > b.Distance
	}
	return a.ID > b.ID
}

// TopK retains the k best items offered to it. The root of the heap is the
// worst retained item, so a new candidate is compared against it only.
type TopK struct {
	k     int
	items []Item
}

// NewTopK returns a selector holding at most k items. k < 1 keeps nothing.
func NewTopK(k int) *TopK {
	if k < 0 {
		k = 0
	}
	return &TopK{k: k, items: make([]Item, 0, min(k, 1024))}
}

// Len returns the number of retained items.
func (q *TopK) Len() int { return len(q.items) }

// Worst returns the worst retained item.
func (q *TopK) Worst() (Item, bool) {
	if len(q.items) == 0 {
		return Item{}, false
	}
	return q.items[0], true
}

// Offer adds it when fewer than k items are retained or when it ranks
// before the current worst. It reports whether it was retained.
func (q *TopK) Offer(it Item) bool {
	if q.k == 0 {
		return false
	}
	if len(q.items) < q.k {
		q.items = append(q.items, it)
		q.siftUp(len(q.items) - 1)
		return true
	}
	if !worse(q.items[0], it) {
		return false
	}
	q.items[0] = it
	q.siftDown(0)
	return true
}

// Drain empties the selector and returns its items best first.
func (q *TopK) Drain() []Item {
	n := len(q.items)
	out := make([]Item, n)
	for i := n - 1; i >= 0; i-- {
		out[i] = q.items[0]
		last := len(q.items) - 1
		q.items[0] = q.items[last]
		q.items = q.items[:last]
		if last > 0 {
			q.siftDown(0)
		}
	}
	return out
}

func (q *TopK) siftUp(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if !worse(q.items[i], q.items[p]) {
			return
		}
		q.items[i], q.items[p] = q.items[p], q.items[i]
		i = p
	}
}

func (q *TopK) siftDown(i int) {
	n := len(q.items)
	for {
		l := 2*i + 1
		if l >= n {
			return
		}
		m := l
		if r := l + 1; r < n && worse(q.items[r], q.items[l]) {
			m = r
		}
		if !worse(q.items[m], q.items[i]) {
			return
		}
		q.items[i], q.items[m] = q.items[m], q.items[i]
		i = m
	}
}
