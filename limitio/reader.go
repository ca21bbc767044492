package limitio

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

type Reader struct {
	ctx     context.Context
	source  io.Reader
	limiter *rate.Limiter
}

// NewReader returns a reader that implements io.Reader with rate limiting.
func NewReader(r io.Reader) *Reader {
	return NewReaderWithContext(context.Background(), r)
}

// NewReaderWithContext returns a rate limited reader that stops waiting when ctx is done.
func NewReaderWithContext(ctx context.Context, r io.Reader) *Reader {
	return &Reader{
		ctx:    ctx,
		source: r,
	}
}

// SetRateLimit sets rate limit (bytes/sec) to the reader.
func (s *Reader) SetRateLimit(bytesPerSec float64, burst int) {
	s.limiter = rate.NewLimiter(rate.Limit(bytesPerSec), burst)
}

// Read bytes into p.
func (s *Reader) Read(p []byte) (int, error) {
	if s.limiter == nil {
		return s.source.Read(p)
	}
	burst := s.limiter.Burst()
	if len(p) > burst {
		p = p[:burst]
	}
	// wait for the tokens first, then read at most one burst of data
	err := s.limiter.WaitN(s.ctx, len(p))
	if err != nil {
		return 0, err
	}
	return s.source.Read(p)
}
