package hostfuncs

import (
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var varsBucket = []byte("vars")

// BoltVarStore persists variables in a bbolt database so they survive
// host restarts. Each plugin gets its own bucket inside the file.
type BoltVarStore struct {
	db     *bolt.DB
	bucket []byte
}

// OpenBoltVarStore opens (or creates) the database at path and scopes the
// store to the named plugin.
func OpenBoltVarStore(path, plugin string) (*BoltVarStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open var store %s: %w", path, err)
	}
	bucket := append(append([]byte(nil), varsBucket...), []byte(":"+plugin)...)
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create var bucket: %w", err)
	}
	return &BoltVarStore{db: db, bucket: bucket}, nil
}

// Get implements VarStore.
func (s *BoltVarStore) Get(name string) ([]byte, bool, error) {
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(s.bucket).Get([]byte(name))
		if v != nil {
			// bbolt values are only valid inside the transaction
			out = append([]byte{}, v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("get var %q: %w", name, err)
	}
	return out, out != nil, nil
}

// Set implements VarStore.
func (s *BoltVarStore) Set(name string, value []byte) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Put([]byte(name), value)
	})
	if err != nil {
		return fmt.Errorf("set var %q: %w", name, err)
	}
	return nil
}

// Delete implements VarStore.
func (s *BoltVarStore) Delete(name string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Delete([]byte(name))
	})
	if err != nil {
		return fmt.Errorf("delete var %q: %w", name, err)
	}
	return nil
}

// Size implements VarStore.
func (s *BoltVarStore) Size() (int, error) {
	n := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).ForEach(func(_, v []byte) error {
			n += len(v)
			return nil
		})
	})
	return n, err
}

// Close closes the underlying database.
func (s *BoltVarStore) Close() error {
	return s.db.Close()
}
