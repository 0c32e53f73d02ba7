/*
Package bloom implements the approximate set used to hold traveler ids per
epoch bucket.

# What the filter is (and is not)

A Filter is a fixed bit array plus k seeded hash functions:

  - If the filter says "not present", the id was never inserted.
  - If the filter says "present", the id may or may not have been inserted
    (false positives are possible, false negatives are not).

It is a statistical approximation, not a privacy primitive: nothing here
provides unlinkability of the ids it stores.

# Shape

Every filter has a shape (size, hashCount). Sizing from an expected item
count n and a target false positive rate p follows the textbook formulas:

	size      = ceil(-(n * ln p) / ln(2)^2)
	hashCount = round((size / n) * ln 2)

Both are at least 1 and never change after construction. Union (bitwise OR)
and intersection (bitwise AND) are only defined between filters of identical
shape; anything else is ErrShapeMismatch.

# Cardinality

The number of distinct items held is estimated from the number of set bits X:

	n = -(size / hashCount) * ln(1 - X / size)

When X == size the logarithm is undefined. The estimate is then clamped to
size and reported as saturated; callers decide how to surface the degraded
accuracy.

# Bit numbering

Bit i lives in byte i>>3 at position i&7 (LSB first). Bits at or beyond size
in the last byte are never set, so bytewise OR/AND and popcount are exact.
*/
package bloom
