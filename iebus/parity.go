package iebus

// Parity computes the single parity bit for a field value: the XOR fold of
// the value's low numBits bits. The same rule applies to every field width
// on the wire (4, 8 and 12 bits).
func Parity(value Data, numBits int) Bit {
	var parity Bit

	for i := 0; i < numBits; i++ {
		parity ^= Bit(value >> i & 1)
	}

	return parity
}

// checkParity reports whether the received parity bit matches the parity
// computed over the received field value.
func checkParity(value Data, numBits int, parity Bit) bool {
	return Parity(value, numBits) == parity
}
