package purchaseorders

import (
	"context"
	"crypto/rand"
	"fmt"

	"github.com/google/uuid"

	pkgerrors "github.com/mercatohq/stockroom-backend/pkg/errors"
)

const (
	numberSuffixLen     = 8
	numberSuffixCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	maxNumberAttempts   = 5
)

// nextNumber allocates a PO-<supplier>-<suffix> number, retrying on the rare
// suffix collision. Exhausting the attempts returns a dependency error so the
// caller fails instead of reusing a number.
func nextNumber(ctx context.Context, repo Repository, supplierID uuid.UUID) (string, error) {
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		suffix, err := randomSuffix(numberSuffixLen)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate purchase order number")
		}
		number := fmt.Sprintf("PO-%s-%s", supplierID, suffix)

		exists, err := repo.NumberExists(ctx, number)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check purchase order number")
		}
		if !exists {
			return number, nil
		}
	}
	return "", pkgerrors.New(pkgerrors.CodeDependency, "could not allocate a unique purchase order number")
}

func randomSuffix(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = numberSuffixCharset[int(b)%len(numberSuffixCharset)]
	}
	return string(buf), nil
}
