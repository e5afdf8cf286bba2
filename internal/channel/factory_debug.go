//go:build debug

package channel

// New creates a new channel.
// In debug builds this is unbuffered (ignores size) so backpressure shows up
// immediately instead of hiding in a buffer.
func New[T any](size int) Channel[T] {
	return NewUnbuffered[T]()
}
