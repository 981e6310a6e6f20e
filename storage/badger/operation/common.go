package operation

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v2"

	"github.com/bounzy/bounzy-go/storage"
)

// insert encodes the entity and stores it under the key. It fails with
// storage.ErrAlreadyExists if the key is taken.
func insert(key []byte, entity interface{}) func(*badger.Txn) error {
	return func(tx *badger.Txn) error {

		_, err := tx.Get(key)
		if err == nil {
			return storage.ErrAlreadyExists
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("could not check key: %w", err)
		}

		val, err := encodeEntity(entity)
		if err != nil {
			return err
		}

		err = tx.Set(key, val)
		if err != nil {
			return fmt.Errorf("could not store data: %w", err)
		}
		return nil
	}
}

// update encodes the entity and replaces the value under the key. It fails with
// storage.ErrNotFound if the key does not exist yet.
func update(key []byte, entity interface{}) func(*badger.Txn) error {
	return func(tx *badger.Txn) error {

		_, err := tx.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return storage.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("could not check key: %w", err)
		}

		val, err := encodeEntity(entity)
		if err != nil {
			return err
		}

		err = tx.Set(key, val)
		if err != nil {
			return fmt.Errorf("could not replace data: %w", err)
		}
		return nil
	}
}

// retrieve decodes the value under the key into the entity, which must be a
// pointer to an initialized value of the correct type.
func retrieve(key []byte, entity interface{}) func(*badger.Txn) error {
	return func(tx *badger.Txn) error {

		item, err := tx.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return storage.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("could not load data: %w", err)
		}

		err = item.Value(func(val []byte) error {
			return decodeValue(val, entity)
		})
		if err != nil {
			return fmt.Errorf("could not decode entity: %w", err)
		}
		return nil
	}
}

// createFunc returns a pointer to an initialized entity to decode the next
// value into during an iteration.
type createFunc func() interface{}

// handleFunc processes the entity decoded in the current iteration step.
type handleFunc func() error

// iterationFunc is called for each iteration step to obtain the decode target
// and the handler of the current key-value pair.
type iterationFunc func() (createFunc, handleFunc)

// traverse iterates over all keys sharing the prefix, in key order. When
// reverse is set the keys are visited from the highest to the lowest.
func traverse(prefix []byte, reverse bool, iteration iterationFunc) func(*badger.Txn) error {
	return func(tx *badger.Txn) error {
		if len(prefix) == 0 {
			return fmt.Errorf("prefix must not be empty")
		}

		opts := badger.DefaultIteratorOptions
		opts.Reverse = reverse
		if !reverse {
			// NOTE: this is an optimization only, it does not enforce that all
			// results in the iteration have this prefix.
			opts.Prefix = prefix
		}

		it := tx.NewIterator(opts)
		defer it.Close()

		seek := prefix
		if reverse {
			// keys extend their prefix by at most maxKeySuffix bytes
			seek = append(append([]byte{}, prefix...), bytes.Repeat([]byte{0xff}, maxKeySuffix)...)
		}

		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			create, handle := iteration()

			err := item.Value(func(val []byte) error {
				entity := create()
				err := decodeValue(val, entity)
				if err != nil {
					return fmt.Errorf("could not decode entity: %w", err)
				}

				err = handle()
				if err != nil {
					return fmt.Errorf("could not handle entity: %w", err)
				}
				return nil
			})
			if errors.Is(err, errStopIteration) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("could not process value: %w", err)
			}
		}

		return nil
	}
}

// errStopIteration ends a traversal early without failing it.
var errStopIteration = errors.New("stop iteration")

const maxKeySuffix = 64
