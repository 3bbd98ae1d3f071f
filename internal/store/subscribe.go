package store

import "sync"

// Subscription delivers Change events until closed.
type Subscription struct {
	C     <-chan Change
	ch    chan Change
	store *Store
	once  sync.Once
}

// Subscribe registers an observer. buffer is the channel capacity; events
// that don't fit are dropped so a slow observer never blocks a writer.
func (s *Store) Subscribe(buffer int) *Subscription {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Change, buffer)
	sub := &Subscription{C: ch, ch: ch, store: s}

	s.subMu.Lock()
	defer s.subMu.Unlock()
	if s.closed {
		close(ch)
		return sub
	}
	s.subs[sub] = struct{}{}
	return sub
}

// Close unregisters the subscription and closes its channel.
func (sub *Subscription) Close() {
	sub.once.Do(func() {
		s := sub.store
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if _, ok := s.subs[sub]; ok {
			delete(s.subs, sub)
			close(sub.ch)
		}
	})
}

func (s *Store) publish(c Change) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for sub := range s.subs {
		select {
		case sub.ch <- c:
		default:
		}
	}
}

// Close closes every subscription. Mutations after Close are still applied
// but no longer published.
func (s *Store) Close() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for sub := range s.subs {
		close(sub.ch)
		delete(s.subs, sub)
	}
}
