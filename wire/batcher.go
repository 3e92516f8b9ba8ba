package wire

// Batcher packs fixed size records of one kind into as few messages as
// possible. A record never straddles two messages: when it does not fit, the
// current message is closed and a new one started.
type Batcher struct {
	kind Kind
	done [][]byte
	cur  *Message
}

func NewBatcher(kind Kind) *Batcher {
	return &Batcher{kind: kind}
}

// Reserve returns the message the next n bytes must be written to. n must
// not exceed MaxMessageSize minus the message overhead.
func (b *Batcher) Reserve(n int) *Message {
	if b.cur != nil && b.cur.Free() < n {
		b.flush()
	}
	if b.cur == nil {
		b.cur = NewMessage(b.kind)
	}
	return b.cur
}

func (b *Batcher) flush() {
	if b.cur == nil {
		return
	}
	b.done = append(b.done, b.cur.Bytes())
	b.cur = nil
}

// Messages closes the batch and returns the encoded frames.
func (b *Batcher) Messages() [][]byte {
	b.flush()
	out := b.done
	b.done = nil
	return out
}
