// Package channel provides generic channel interfaces so producers and
// consumers of engagement records don't need to agree on buffering.
package channel

// Receiver provides read access to a channel.
type Receiver[T any] interface {
	Receive() <-chan T
	Len() int
}

// Sender provides write access to a channel.
type Sender[T any] interface {
	Send(T)
}

// Channel combines read and write access.
type Channel[T any] interface {
	Receiver[T]
	Sender[T]
	Close()
}

// Buffered wraps a buffered Go channel.
type Buffered[T any] struct {
	ch chan T
}

// NewBuffered creates a channel with the given capacity.
func NewBuffered[T any](size int) *Buffered[T] {
	return &Buffered[T]{ch: make(chan T, size)}
}

func (b *Buffered[T]) Send(v T) { b.ch <- v }
func (b *Buffered[T]) Receive() <-chan T { return b.ch }
func (b *Buffered[T]) Close() { close(b.ch) }

// Len reports how many values sit in the buffer.
func (b *Buffered[T]) Len() int { return len(b.ch) }

// Unbuffered wraps an unbuffered Go channel: every Send rendezvouses with a
// Receive.
type Unbuffered[T any] struct {
	ch chan T
}

// NewUnbuffered creates a rendezvous channel.
func NewUnbuffered[T any]() *Unbuffered[T] {
	return &Unbuffered[T]{ch: make(chan T)}
}

func (u *Unbuffered[T]) Send(v T) { u.ch <- v }
func (u *Unbuffered[T]) Receive() <-chan T { return u.ch }
func (u *Unbuffered[T]) Close() { close(u.ch) }

// Len is always 0: nothing queues in a rendezvous channel.
func (u *Unbuffered[T]) Len() int { return 0 }
