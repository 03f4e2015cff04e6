package mailtm

import (
	"context"
	"fmt"
	"time"
)

// WaitResult reports the outcome of WaitForNew. Messages is the listing
// from the last successful check.
type WaitResult struct {
	New      []MessageSummary
	Messages []MessageSummary
	Checks   int
}

// WaitForNew polls the mailbox until a message that was not in the
// initial listing shows up. It sleeps interval before each of at most
// maxChecks listings and returns on the first difference. When no new
// message appears the result is returned together with ErrWaitTimeout.
// Non-positive arguments select the client defaults.
func (c *Client) WaitForNew(
	ctx context.Context,
	interval time.Duration,
	maxChecks int,
) (*WaitResult, error) {
	if _, err := c.requireSession(); err != nil {
		return nil, err
	}
	if interval <= 0 {
		interval = c.waitInterval
	}
	if maxChecks <= 0 {
		maxChecks = c.waitChecks
	}

	baseline, err := c.ListMessages(ctx)
	if err != nil {
		return nil, fmt.Errorf("capturing baseline: %w", err)
	}
	seen := messageIDs(baseline)

	result := &WaitResult{Messages: baseline}
	for result.Checks < maxChecks {
		if err := c.sleep(ctx, interval); err != nil {
			return result, err
		}
		result.Checks++

		current, err := c.ListMessages(ctx)
		if err != nil {
			// A failed check is a check without news.
			c.log.Debug().Err(err).Int("check", result.Checks).Msg("wait check failed")
			continue
		}
		result.Messages = current

		for _, m := range current {
			if _, ok := seen[m.ID]; !ok {
				result.New = append(result.New, m)
			}
		}
		if len(result.New) > 0 {
			return result, nil
		}
	}

	return result, ErrWaitTimeout
}
