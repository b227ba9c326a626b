package history

// KV is the durable key-value capability backing the store. Set must be
// durable by the time it returns (write-through; a crash afterwards loses
// nothing already acknowledged).
type KV interface {
	// Get returns the stored value and whether the key exists.
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
}
