package collector

const defaultOutputTailBytes = 1024 * 1024 // 1MB kept in memory per test

// tailBuffer keeps only the last N bytes written to it so we can attach a
// representative snippet of output to the outcome without retaining the
// entire log in memory. Callers serialize access.
type tailBuffer struct {
	maxBytes int
	total    int64
	contents []byte
	overflow bool
}

func newTailBuffer(maxBytes int) *tailBuffer {
	if maxBytes <= 0 {
		maxBytes = defaultOutputTailBytes
	}
	return &tailBuffer{
		maxBytes: maxBytes,
	}
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.total += int64(len(p))
	b.contents = append(b.contents, p...)

	// Trim front to keep the most recent bytes
	if len(b.contents) > b.maxBytes {
		b.contents = b.contents[len(b.contents)-b.maxBytes:]
		b.overflow = true
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	return string(b.contents)
}

func (b *tailBuffer) TotalBytes() int64 {
	return b.total
}

func (b *tailBuffer) Truncated() bool {
	return b.overflow || int64(len(b.contents)) < b.total
}
