package backup

import (
	"context"
	"io"

	"github.com/mesh-intelligence/catalogue/pkg/types"
)

// tracker accumulates copied bytes and files and reports them. Percent is
// capped below 100 until finish so the final call is the only one at 100.
type tracker struct {
	fn         types.ProgressFunc
	bytes      int64
	files      int
	totalBytes int64
	totalFiles int
	last       float64
}

func newTracker(fn types.ProgressFunc, totalBytes int64, totalFiles int) *tracker {
	return &tracker{fn: fn, totalBytes: totalBytes, totalFiles: totalFiles}
}

func (t *tracker) add(n int64) {
	t.bytes += n
	t.report(false)
}

func (t *tracker) fileDone() {
	t.files++
	t.report(false)
}

func (t *tracker) finish() {
	t.report(true)
}

func (t *tracker) report(final bool) {
	if t.fn == nil {
		return
	}
	pct := 100.0
	if !final {
		if t.totalBytes > 0 {
			pct = float64(t.bytes) / float64(t.totalBytes) * 100
		} else {
			pct = 0
		}
		if pct > 99.9 {
			pct = 99.9
		}
		if pct < t.last {
			pct = t.last
		}
	}
	t.last = pct
	totalBytes, totalFiles := t.totalBytes, t.totalFiles
	t.fn(types.Progress{
		ProcessedBytes: t.bytes,
		TotalBytes:     &totalBytes,
		ProcessedFiles: t.files,
		TotalFiles:     &totalFiles,
		Percent:        &pct,
	})
}

// progressReader counts bytes through the tracker and stops on cancellation
// between chunks.
type progressReader struct {
	ctx context.Context
	r   io.Reader
	t   *tracker
}

func (p *progressReader) Read(b []byte) (int, error) {
	if err := p.ctx.Err(); err != nil {
		return 0, err
	}
	n, err := p.r.Read(b)
	if n > 0 {
		p.t.add(int64(n))
	}
	return n, err
}
