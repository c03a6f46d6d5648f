package transactor

import "github.com/kevink2022/Boomic-sub000/internal/basis"

// Subscribe returns a channel that always holds the latest Basis. A slow
// reader skips intermediate snapshots rather than blocking commits. The
// channel starts with the current Basis; cancel closes it.
func (t *Transactor) Subscribe() (<-chan *basis.Basis, func()) {
	ch := make(chan *basis.Basis, 1)

	t.subMu.Lock()
	t.nextSub++
	id := t.nextSub
	t.subs[id] = ch
	ch <- t.current.Load()
	t.subMu.Unlock()

	cancel := func() {
		t.subMu.Lock()
		defer t.subMu.Unlock()
		if _, ok := t.subs[id]; ok {
			delete(t.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

func (t *Transactor) broadcast(b *basis.Basis) {
	t.subMu.Lock()
	defer t.subMu.Unlock()
	for _, ch := range t.subs {
		select {
		case <-ch:
		default:
		}
		ch <- b
	}
}
