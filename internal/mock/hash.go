package mock

// Hash mixes x into a well-distributed 32-bit value. All arithmetic wraps at 32 bits, so
// the result is the same on every platform
func Hash(x int) uint32 {
	h := uint32(x)
	h = ((h >> 16) ^ h) * 0x45d9f3b
	h = ((h >> 16) ^ h) * 0x45d9f3b
	return (h >> 16) ^ h
}

// pick deterministically selects an index in [0, n) for key
func pick(key, n int) int {
	return int(Hash(key) % uint32(n))
}
