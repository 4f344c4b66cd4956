package orders

import (
	"context"
	"fmt"
	"time"
)

const referenceDayFormat = "2006-01-02"

// nextReference formats the daily sequential order reference, e.g.
// SO-2026-01-15-003.
func nextReference(ctx context.Context, repo Repository, now time.Time) (string, error) {
	day := now.UTC().Format(referenceDayFormat)
	seq, err := repo.NextReferenceSeq(ctx, day)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("SO-%s-%03d", day, seq), nil
}
