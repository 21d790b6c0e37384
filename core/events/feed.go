package events

import (
	"sync"

	"sellerchain/core/types"
)

// ReceiptFeed fans executed receipts out to subscribers. Delivery never blocks
// the publisher: a subscriber whose buffer is full misses the receipt and the
// drop is counted.
type ReceiptFeed struct {
	mu      sync.Mutex
	nextID  uint64
	subs    map[uint64]chan *types.Receipt
	dropped uint64
}

// NewReceiptFeed constructs an empty feed.
func NewReceiptFeed() *ReceiptFeed {
	return &ReceiptFeed{subs: make(map[uint64]chan *types.Receipt)}
}

// Subscribe registers a subscriber with the given buffer size and returns the
// delivery channel plus a cancel function that closes it.
func (f *ReceiptFeed) Subscribe(buffer int) (<-chan *types.Receipt, func()) {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan *types.Receipt, buffer)
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subs[id] = ch
	f.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish delivers the receipt to every subscriber.
func (f *ReceiptFeed) Publish(receipt *types.Receipt) {
	if f == nil || receipt == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs {
		select {
		case ch <- receipt:
		default:
			f.dropped++
		}
	}
}

// Dropped reports how many deliveries were skipped because a subscriber was
// not keeping up.
func (f *ReceiptFeed) Dropped() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dropped
}
