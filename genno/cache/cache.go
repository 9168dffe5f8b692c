// Package cache persists computed values between runs so that expensive
// file loads are not repeated. Entries are keyed by an operation name
// plus a hash of the call arguments, serialized through a Codec and held
// in one of two Store backends: flat files or an embedded Badger
// database.
package cache

import (
	"crypto/sha1"
	"encoding/json"
	"errors"
	"fmt"
)

// Backend names accepted by Open.
const (
	FileBackend   = "file"
	BadgerBackend = "badger"
)

var (
	// ErrBackend means the requested backend name is not known.
	ErrBackend = errors.New("unknown cache backend")
	// ErrPayload means a value's type cannot round-trip the cache.
	ErrPayload = errors.New("unsupported payload")
	// ErrCorrupt means a stored entry cannot be decoded.
	ErrCorrupt = errors.New("corrupt cache entry")
)

// A Store holds cache payloads. Implementations must tolerate keys they
// have never seen: Get reports a miss, not an error.
type Store interface {
	// Get returns the payload stored under key, or found=false on a miss.
	Get(key string) (payload []byte, found bool, err error)
	// Put stores payload under key, replacing any previous entry.
	Put(key string, payload []byte) error
	// Close releases the store's resources.
	Close() error
}

// Open creates the store named by backend, rooted at dir. An empty
// backend selects the file store.
func Open(backend, dir string) (Store, error) {
	switch backend {
	case FileBackend, "":
		return NewFileStore(dir)
	case BadgerBackend:
		return NewBadgerStore(dir)
	}
	return nil, fmt.Errorf("%w %q", ErrBackend, backend)
}

// ArgHash returns the hex SHA-1 digest of the JSON rendering of args,
// identifying one set of call arguments when building cache keys. No
// arguments at all hash to the digest of the empty string.
func ArgHash(args ...any) string {
	if len(args) == 0 {
		return fmt.Sprintf("%x", sha1.Sum(nil))
	}
	raw, err := json.Marshal(args)
	if err != nil {
		// Values JSON cannot render still need a stable key.
		raw = []byte(fmt.Sprint(args...))
	}
	return fmt.Sprintf("%x", sha1.Sum(raw))
}

// Key composes the store key for one call: the operation name and the
// argument hash, joined the way the entries are named on disk.
func Key(name string, args ...any) string {
	return name + "-" + ArgHash(args...)
}

// LoadFunc computes a value when the cache cannot supply it.
type LoadFunc func() (any, error)

// Cached resolves name(args...) through store: on a hit the stored value
// is decoded and returned, on a miss load runs and its result is written
// back. With skip true the lookup is bypassed and the entry refreshed
// unconditionally. A nil store falls through to load.
func Cached(store Store, codec *Codec, skip bool, name string, load LoadFunc, args ...any) (any, error) {
	if store == nil {
		return load()
	}
	hash := ArgHash(args...)
	key := name + "-" + hash
	short := fmt.Sprintf("%s(<%.8s…>)", name, hash)

	if !skip {
		raw, found, err := store.Get(key)
		if err != nil {
			return nil, err
		}
		if found {
			v, err := codec.Decode(raw)
			if err == nil {
				logger.Infof("Cache hit for %s", short)
				return v, nil
			}
			logger.Warnf("Discarding unreadable entry %s: %v", key, err)
		}
	}
	logger.Infof("Cache miss for %s", short)

	v, err := load()
	if err != nil {
		return nil, err
	}
	raw, err := codec.Encode(v)
	if err != nil {
		if errors.Is(err, ErrPayload) {
			// The value works this run; it just cannot be kept.
			logger.Debugf("Not cached: %v", err)
			return v, nil
		}
		return nil, err
	}
	if err := store.Put(key, raw); err != nil {
		return nil, err
	}
	return v, nil
}
