// Copyright (c) 2025 RepoLaunch Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package conversation

// Buffer maintains a phase conversation split into a fixed prefix (task
// framing, never evicted) and a rolling tail. Rendering re-applies the
// window every turn, so the visible slice always reflects the latest
// messages rather than a one-time cut.
type Buffer struct {
	window int
	prefix []Message
	tail   []Message
}

// NewBuffer creates a buffer with the given window size over the tail.
// The prefix messages are pinned and survive every truncation.
func NewBuffer(window int, prefix ...Message) *Buffer {
	return &Buffer{
		window: window,
		prefix: append([]Message(nil), prefix...),
	}
}

// Append adds a message to the rolling tail.
func (b *Buffer) Append(msg Message) {
	b.tail = append(b.tail, msg)
}

// Tail returns a copy of the rolling tail, oldest first.
func (b *Buffer) Tail() []Message {
	return append([]Message(nil), b.tail...)
}

// Len returns the total number of held messages, prefix included.
func (b *Buffer) Len() int {
	return len(b.prefix) + len(b.tail)
}

// Render produces the messages for one model invocation: the immutable
// prefix, any synthesized bridge messages (e.g. a "commands so far"
// summary), and the tail. While the tail fits in the window the full
// history is sent; beyond that only the most recent window messages are.
func (b *Buffer) Render(bridge ...Message) []Message {
	out := make([]Message, 0, len(b.prefix)+len(bridge)+len(b.tail))
	out = append(out, b.prefix...)
	out = append(out, bridge...)

	tail := b.tail
	if b.window > 0 && len(tail) > b.window {
		tail = tail[len(tail)-b.window:]
	}
	return append(out, tail...)
}
