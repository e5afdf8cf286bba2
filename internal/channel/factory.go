//go:build !debug

package channel

// New creates a new channel with the given buffer size.
// In release builds this is buffered so sweep workers never stall on the writer.
func New[T any](size int) Channel[T] {
	return NewBuffered[T](size)
}
