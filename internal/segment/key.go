package segment

import (
	"encoding/binary"
	"math"
	"sync"

	"github.com/zeebo/xxh3"
)

// Key is the index identity of a lookup key: xxh3 64-bit value plus the
// 128-bit digest halves, compared as a whole so collisions on v alone do not alias.
type Key struct {
	v  uint64
	hi uint64
	lo uint64
}

func (k Key) IsTheSame(key Key) bool {
	return k.v == key.v && k.hi == key.hi && k.lo == key.lo
}

var hasherPool = sync.Pool{New: func() any { return xxh3.New() }}

// newKey hashes a normalized lookup key. Only scalar keys are indexable.
func newKey(raw any) (Key, bool) {
	var buf [9]byte
	var data []byte
	switch v := raw.(type) {
	case string:
		data = append(make([]byte, 0, len(v)+1), 's')
		data = append(data, v...)
	case int64:
		buf[0] = 'i'
		binary.LittleEndian.PutUint64(buf[1:], uint64(v))
		data = buf[:]
	case float64:
		buf[0] = 'f'
		binary.LittleEndian.PutUint64(buf[1:], math.Float64bits(v))
		data = buf[:]
	case bool:
		data = buf[:2]
		data[0] = 'b'
		if v {
			data[1] = 1
		}
	default:
		return Key{}, false
	}
	return buildKey(data), true
}

func buildKey(data []byte) Key {
	// acquire reusable hasher
	hasher := hasherPool.Get().(*xxh3.Hasher)
	hasher.Reset()

	_, _ = hasher.Write(data)
	u128 := hasher.Sum128()
	k := Key{v: hasher.Sum64(), hi: u128.Hi, lo: u128.Lo}

	// release hasher after use
	hasherPool.Put(hasher)

	return k
}
