package store

var _ DB = (*MemoryDB)(nil)

// MemoryDB is a non-durable DB for tests and ephemeral logs.
type MemoryDB struct {
	entries map[string][]byte
}

func NewMemoryDB() *MemoryDB {
	return &MemoryDB{entries: make(map[string][]byte)}
}

func (m *MemoryDB) Get(key []byte) ([]byte, error) {
	val, ok := m.entries[string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MemoryDB) Put(key, value []byte) error {
	stored := make([]byte, len(value))
	copy(stored, value)
	m.entries[string(key)] = stored
	return nil
}

func (m *MemoryDB) Delete(key []byte) error {
	delete(m.entries, string(key))
	return nil
}

func (m *MemoryDB) Close() error {
	m.entries = nil
	return nil
}
