package sale

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Sale numbers are nine-digit values drawn from crypto/rand so they cannot be
// enumerated. Uniqueness is enforced by the persistence layer; the generator
// only has to make collisions rare.
const (
	saleNumberMin  int64 = 100_000_000
	saleNumberSpan int64 = 900_000_000
)

// maxSaleNumberAttempts bounds the generate-then-verify retry loop before the
// orchestrator gives up with ErrSaleNumberExhausted.
const maxSaleNumberAttempts = 5

// NextSaleNumber produces an unpredictable candidate sale number.
func NextSaleNumber() (int64, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(saleNumberSpan))
	if err != nil {
		return 0, fmt.Errorf("sale: generate sale number: %w", err)
	}
	return saleNumberMin + n.Int64(), nil
}
