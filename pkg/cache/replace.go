package cache

// Policy selects the replacement policy for resident pages.
type Policy uint8

const (
	// PolicyLRU moves a page to the head of the replacement list on every
	// successful access.
	PolicyLRU Policy = 0
	// PolicyFIFO evicts pages in insertion order; accesses do not reorder.
	PolicyFIFO Policy = 1
)

func (p Policy) String() string {
	switch p {
	case PolicyLRU:
		return "lru"
	case PolicyFIFO:
		return "fifo"
	default:
		return "unknown"
	}
}

// replaceList orders every resident header, valid or invalid. The head is
// the freshest page, the tail the next eviction candidate. Invalid headers
// are kept at the tail.
type replaceList struct {
	head, tail *pageHeader
	policy     Policy
	count      int
}

// prepend inserts a header at the head
func (l *replaceList) prepend(h *pageHeader) {
	h.check()

	h.replPrev = nil
	h.replNext = l.head
	if l.head != nil {
		l.head.replPrev = h
	}
	l.head = h
	if l.tail == nil {
		l.tail = h
	}
	l.count++
}

// append inserts a header at the tail
func (l *replaceList) append(h *pageHeader) {
	h.check()

	h.replNext = nil
	h.replPrev = l.tail
	if l.tail != nil {
		l.tail.replNext = h
	}
	l.tail = h
	if l.head == nil {
		l.head = h
	}
	l.count++
}

// remove unlinks a header from the list
func (l *replaceList) remove(h *pageHeader) {
	h.check()

	if h.replPrev != nil {
		h.replPrev.replNext = h.replNext
	} else {
		l.head = h.replNext
	}
	if h.replNext != nil {
		h.replNext.replPrev = h.replPrev
	} else {
		l.tail = h.replPrev
	}
	h.replPrev, h.replNext = nil, nil
	l.count--
}

// touch records a successful access. LRU moves the header to the head;
// FIFO leaves the order alone.
func (l *replaceList) touch(h *pageHeader) {
	if l.policy != PolicyLRU {
		return
	}
	h.check()
	if l.head == h {
		return
	}
	l.remove(h)
	l.prepend(h)
}

// moveToTail parks a header at the eviction end, used when it goes invalid
func (l *replaceList) moveToTail(h *pageHeader) {
	h.check()
	if l.tail == h {
		return
	}
	l.remove(h)
	l.append(h)
}
