package redisrec

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
)

// DefaultBatchSize is the number of ids fetched per index range query in
// full scans and mass deletes.
const DefaultBatchSize = 50

type Options struct {
	// Prefix is prepended (joined with ":") to every key, e.g. {"prod", "tenant42"}.
	Prefix []string

	// BatchSize overrides DefaultBatchSize.
	BatchSize int

	Logf    func(format string, args ...any)
	Verbose bool

	// SuppressContent hides record bodies from verbose logs.
	SuppressContent bool
}

// Driver binds a Storage to a key prefix. Tables created from the same
// driver share its connection.
type Driver struct {
	st              Storage
	prefix          []string
	batchSize       int
	logf            func(format string, args ...any)
	verbose         bool
	suppressContent bool
}

// New returns a driver over an existing storage handle.
func New(st Storage, opt Options) *Driver {
	if st == nil {
		panic("redisrec.New: nil storage")
	}
	drv := &Driver{
		st:              st,
		prefix:          slices.Clone(opt.Prefix),
		batchSize:       opt.BatchSize,
		logf:            opt.Logf,
		verbose:         opt.Verbose,
		suppressContent: opt.SuppressContent,
	}
	if drv.batchSize <= 0 {
		drv.batchSize = DefaultBatchSize
	}
	if drv.logf == nil {
		drv.logf = slogf
	}
	return drv
}

func slogf(format string, args ...any) {
	slog.Debug(fmt.Sprintf(format, args...))
}

// OpenBolt returns a driver over a Bolt file, for single-process use.
func OpenBolt(path string, opt Options) (*Driver, error) {
	st, err := OpenBoltStorage(path, BoltOptions{})
	if err != nil {
		return nil, err
	}
	return New(st, opt), nil
}

// NewMemory returns a driver over a fresh in-process storage.
func NewMemory(opt Options) *Driver {
	return New(NewMemStorage(), opt)
}

func (drv *Driver) Storage() Storage {
	return drv.st
}

func (drv *Driver) Prefix() []string {
	return slices.Clone(drv.prefix)
}

// Table returns the record table with the given name. The classifier is
// consulted once, here; a primary key that is missing or not an Integer is
// reported immediately.
func (drv *Driver) Table(name string, cls Classifier) (*Table, error) {
	if name == "" {
		return nil, fmt.Errorf("redisrec: table name must not be empty")
	}
	c, err := newCodec(cls)
	if err != nil {
		return nil, fmt.Errorf("redisrec: table %s: %w", name, err)
	}
	keys := makeTableKeys(drv.prefix, name)
	return &Table{
		drv:   drv,
		name:  name,
		keys:  keys,
		codec: c,
		seq:   sequence{st: drv.st, key: keys.sequence},
		idx:   pkIndex{st: drv.st, key: keys.index},
	}, nil
}

// MustTable is like Table, but panics on error. Meant for package-level table
// definitions.
func (drv *Driver) MustTable(name string, cls Classifier) *Table {
	tbl, err := drv.Table(name, cls)
	if err != nil {
		panic(err)
	}
	return tbl
}

// Reset removes every key of the backing database, not just this driver's
// prefix. Intended for tests and development tools.
func (drv *Driver) Reset(ctx context.Context) error {
	if drv.verbose {
		drv.logf("rec: FLUSHDB")
	}
	return drv.st.FlushDB(ctx)
}

func (drv *Driver) Close() error {
	return drv.st.Close()
}
