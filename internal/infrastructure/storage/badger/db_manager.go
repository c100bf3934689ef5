package dbbadger

import (
	"github.com/dgraph-io/badger/v3"
	"github.com/dgraph-io/badger/v3/options"
	"github.com/timshannon/badgerhold/v4"
)

// DbManager holds the badgerhold store backing the order journal.
type DbManager struct {
	Store *badgerhold.Store
}

// NewDbManager opens (or creates if not exists) the badger store on disk. An
// empty dir opens an in-memory store, handy for tests.
func NewDbManager(dbDir string, logger badger.Logger) (*DbManager, error) {
	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger
	opts.Compression = options.ZSTD
	if len(dbDir) <= 0 {
		opts.InMemory = true
	}

	store, err := badgerhold.Open(badgerhold.Options{
		Encoder:          badgerhold.DefaultEncode,
		Decoder:          badgerhold.DefaultDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
	if err != nil {
		return nil, err
	}

	return &DbManager{Store: store}, nil
}

// Close releases the underlying store.
func (d *DbManager) Close() error {
	return d.Store.Close()
}
