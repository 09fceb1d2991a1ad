package images

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/mesh-intelligence/catalogue/pkg/types"
)

// ImportBatch imports every source into one artwork, then derives the
// thumbnails of the new images concurrently, bounded by the configured
// worker count. Failures are recorded per file and never stop the rest of
// the batch. The returned error is set only when ctx ends early.
func (m *Manager) ImportBatch(ctx context.Context, artworkID int64, sources []string) ([]types.ImportOutcome, error) {
	outcomes := make([]types.ImportOutcome, len(sources))
	var pending []int64
	var pendingIdx []int

	for i, src := range sources {
		outcomes[i].Source = src
		if err := ctx.Err(); err != nil {
			outcomes[i].Err = err
			continue
		}
		res, err := m.Import(ctx, artworkID, src)
		if err != nil {
			outcomes[i].Err = err
			m.log.Warn().Err(err).Str("source", src).Msg("import failed")
			continue
		}
		outcomes[i].Result = &res
		if !res.Duplicate {
			pending = append(pending, res.ImageID)
			pendingIdx = append(pendingIdx, i)
		}
	}

	thumbErrs := m.GenerateThumbnails(ctx, pending)
	for j, err := range thumbErrs {
		outcomes[pendingIdx[j]].ThumbnailErr = err
	}
	return outcomes, ctx.Err()
}

// GenerateThumbnails derives thumbnails for several images concurrently.
// The returned slice holds one error (or nil) per image id, in order.
func (m *Manager) GenerateThumbnails(ctx context.Context, imageIDs []int64) []error {
	errs := make([]error, len(imageIDs))

	var g errgroup.Group
	g.SetLimit(m.opts.Workers)
	for i, id := range imageIDs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			_, errs[i] = m.GenerateThumbnail(ctx, id)
			return nil
		})
	}
	_ = g.Wait()
	return errs
}
