package offset

import "github.com/pkg/errors"

var (
	// ErrOutOfBounds is returned when an (offset, length) pair reaches past
	// the end of the child array, or either value is negative.
	ErrOutOfBounds = errors.New("offset out of bounds")

	// ErrLengthMismatch is returned when offsets and lengths have different
	// element counts.
	ErrLengthMismatch = errors.New("offsets and lengths differ in length")
)

// CheckUnorderedBounds verifies that every element i satisfies
// 0 <= offsets[i], 0 <= lengths[i] and offsets[i]+lengths[i] <= childLen.
// Offsets need not be monotone and ranges may overlap. The first failing
// element is reported.
func CheckUnorderedBounds[O Offset](offsets, lengths Buffer[O], childLen int) error {
	if offsets.Len() != lengths.Len() {
		return errors.Wrapf(ErrLengthMismatch, "%d offsets, %d lengths", offsets.Len(), lengths.Len())
	}

	limit := int64(childLen)
	offs, lens := offsets.Values(), lengths.Values()
	for i := range offs {
		off, n := int64(offs[i]), int64(lens[i])
		if off < 0 || n < 0 {
			return errors.Wrapf(ErrOutOfBounds, "element %d: negative offset %d or length %d", i, off, n)
		}
		// Written as a subtraction so the check cannot overflow.
		if off > limit || n > limit-off {
			return errors.Wrapf(ErrOutOfBounds, "element %d: offset %d + length %d exceeds child length %d", i, off, n, childLen)
		}
	}
	return nil
}
