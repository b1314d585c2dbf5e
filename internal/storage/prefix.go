package storage

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

// Sep separates namespace segments in keys.
const Sep = '/'

// ErrBadSegment is returned for an empty namespace segment or one that
// contains Sep.
var ErrBadSegment = errors.New("invalid namespace segment")

// PrefixDB wraps a DB and prepends a fixed prefix to all keys. Each account
// gets its own PrefixDB, so its keys never collide with another account's.
type PrefixDB struct {
	inner  DB
	prefix []byte
}

// NewPrefixDB creates a new PrefixDB wrapping inner with a raw prefix.
func NewPrefixDB(inner DB, prefix []byte) *PrefixDB {
	return &PrefixDB{inner: inner, prefix: bytes.Clone(prefix)}
}

// Namespace builds the prefix "a/b/c/" from segments.
func Namespace(segments ...string) ([]byte, error) {
	var buf bytes.Buffer
	for _, s := range segments {
		if s == "" || strings.IndexByte(s, Sep) >= 0 {
			return nil, fmt.Errorf("%w: %q", ErrBadSegment, s)
		}
		buf.WriteString(s)
		buf.WriteByte(Sep)
	}
	return buf.Bytes(), nil
}

// Sub returns the namespace "<p>/s1/s2/.../" below p, e.g.
// root.Sub(wallet, account). Segments must be non-empty and free of Sep.
func (p *PrefixDB) Sub(segments ...string) (*PrefixDB, error) {
	rel, err := Namespace(segments...)
	if err != nil {
		return nil, err
	}
	return &PrefixDB{inner: p.inner, prefix: p.prefixed(rel)}, nil
}

// Children returns the direct child segments c of p for which the key
// "c/<marker>" exists, in the inner DB's iteration order.
func (p *PrefixDB) Children(marker []byte) ([]string, error) {
	suffix := append([]byte{Sep}, marker...)
	var out []string
	err := p.ForEach(nil, func(key, _ []byte) error {
		i := bytes.IndexByte(key, Sep)
		if i > 0 && bytes.Equal(key[i:], suffix) {
			out = append(out, string(key[:i]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (p *PrefixDB) prefixed(key []byte) []byte {
	return join(p.prefix, key)
}

func join(prefix, key []byte) []byte {
	out := make([]byte, len(prefix)+len(key))
	copy(out, prefix)
	copy(out[len(prefix):], key)
	return out
}

// Get retrieves a value by key.
func (p *PrefixDB) Get(key []byte) ([]byte, error) {
	return p.inner.Get(p.prefixed(key))
}

// Put stores a key-value pair.
func (p *PrefixDB) Put(key, value []byte) error {
	return p.inner.Put(p.prefixed(key), value)
}

// Delete removes a key.
func (p *PrefixDB) Delete(key []byte) error {
	return p.inner.Delete(p.prefixed(key))
}

// Has checks if a key exists.
func (p *PrefixDB) Has(key []byte) (bool, error) {
	return p.inner.Has(p.prefixed(key))
}

// ForEach iterates over keys with the given prefix inside the namespace.
// Keys reach fn with the namespace stripped.
func (p *PrefixDB) ForEach(prefix []byte, fn func(key, value []byte) error) error {
	return p.inner.ForEach(p.prefixed(prefix), func(key, value []byte) error {
		return fn(key[len(p.prefix):], value)
	})
}

// DeleteAll removes every key in the namespace, in one batch when the
// inner DB supports it.
func (p *PrefixDB) DeleteAll() error {
	var keys [][]byte
	err := p.ForEach(nil, func(key, _ []byte) error {
		keys = append(keys, bytes.Clone(key))
		return nil
	})
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	b := p.NewBatch()
	for _, key := range keys {
		if err := b.Delete(key); err != nil {
			return err
		}
	}
	return b.Commit()
}

// Close is a no-op; the outer DB manages its own lifecycle.
func (p *PrefixDB) Close() error {
	return nil
}

// NewBatch creates a batch that prepends the prefix to all keys. It is
// atomic when the inner DB is a Batcher.
func (p *PrefixDB) NewBatch() Batch {
	if batcher, ok := p.inner.(Batcher); ok {
		return &prefixBatch{inner: batcher.NewBatch(), prefix: p.prefix}
	}
	return &prefixFallbackBatch{db: p}
}

type prefixBatch struct {
	inner  Batch
	prefix []byte
}

func (pb *prefixBatch) Put(key, value []byte) error {
	return pb.inner.Put(join(pb.prefix, key), value)
}

func (pb *prefixBatch) Delete(key []byte) error {
	return pb.inner.Delete(join(pb.prefix, key))
}

func (pb *prefixBatch) Commit() error {
	return pb.inner.Commit()
}

type batchOp struct {
	key   []byte
	value []byte // nil means delete
}

// prefixFallbackBatch buffers writes and applies them one by one when the
// inner DB has no batches.
type prefixFallbackBatch struct {
	db  *PrefixDB
	ops []batchOp
}

func (fb *prefixFallbackBatch) Put(key, value []byte) error {
	v := bytes.Clone(value)
	if v == nil {
		v = []byte{}
	}
	fb.ops = append(fb.ops, batchOp{bytes.Clone(key), v})
	return nil
}

func (fb *prefixFallbackBatch) Delete(key []byte) error {
	fb.ops = append(fb.ops, batchOp{key: bytes.Clone(key)})
	return nil
}

func (fb *prefixFallbackBatch) Commit() error {
	for _, op := range fb.ops {
		var err error
		if op.value == nil {
			err = fb.db.Delete(op.key)
		} else {
			err = fb.db.Put(op.key, op.value)
		}
		if err != nil {
			return err
		}
	}
	fb.ops = nil
	return nil
}
