package genclient

import (
	"context"

	"github.com/gitlegend/gitlegend/internal/contract"
	"golang.org/x/sync/errgroup"
)

// BatchGenerateSummaries summarizes items in fixed-size batches. Items inside a
// batch are requested concurrently; batches run one after another separated by
// the configured delay. Results keep the input order.
func (c *Client) BatchGenerateSummaries(ctx context.Context, items []contract.BatchItem, candidates []string) []contract.BatchResult {
	results := make([]contract.BatchResult, len(items))
	for i := range items {
		results[i].SHA = items[i].SHA
	}

	for start := 0; start < len(items); start += c.opts.BatchSize {
		end := min(start+c.opts.BatchSize, len(items))

		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				results[i].SummaryResult = c.GenerateSummary(ctx, items[i].Facts, candidates)
				return nil
			})
		}
		_ = g.Wait()

		if end < len(items) {
			if err := c.opts.Retry.sleep(ctx, c.opts.BatchDelay); err != nil {
				contract.LogWarn("Summary batches interrupted", err)
				break
			}
		}
	}
	return results
}
