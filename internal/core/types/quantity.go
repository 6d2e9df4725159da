package types

import "math"

// MaxQuantity is the largest stock quantity a variation or order line holds.
// Quantities are stored as 32-bit integers.
const MaxQuantity = math.MaxInt32

// ValidQuantity reports 0 <= q <= MaxQuantity.
func ValidQuantity(q int) bool {
	return q >= 0 && q <= MaxQuantity
}
