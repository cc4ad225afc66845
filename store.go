// Package barrel implements an embeddable, single-process, persistent
// key-value store for short string keys and string values, in the
// Bitcask style: mutations are appended to a growing sequence of log
// files, and an in-memory hash index maps each live key to the byte
// location of its most recent value.
//
// The on-disk layout, in a single data directory:
//
//	<gen>.log - a concatenation of JSON-framed Set/Remove records,
//	            where <gen> is an unsigned decimal integer with no
//	            leading zeros and no other files are written by the
//	            store.
//
// Restarts rebuild the index by replaying every log file in ascending
// generation order. When redundant log bytes (superseded values,
// tombstones) accumulate past a threshold, Set triggers a compaction
// that copies only the live records into a fresh generation and deletes
// the obsolete files.
//
// A Store is not safe for concurrent use by multiple goroutines; it
// assumes a single caller driving open/get/set/remove/close to
// completion one at a time, the way the teacher's Bitcask-derived
// designs assume a single writer per directory.
package barrel

import (
	"io"
	"os"

	"go.uber.org/multierr"

	"github.com/barreldb/barrel/errors"
	"github.com/barreldb/barrel/log"
)

// DefaultCompactionThreshold is used when no WithCompactionThreshold
// option is supplied to Open. Realistic production values for a
// Bitcask-style log sit between 1 and 64 MiB; tests configure it much
// smaller (spec.md uses 128 bytes) to exercise compaction quickly.
const DefaultCompactionThreshold int64 = 1 << 20 // 1 MiB

// cmdPos is the triple (gen, pos, len) identifying a record's byte
// location: generation, starting offset within that generation's file,
// and byte length of the encoded record.
type cmdPos struct {
	gen uint64
	pos int64
	len int64
}

// Stats reports a snapshot of a Store's internal bookkeeping, useful for
// an embedder (or cmd/barrelctl's stats subcommand) that wants
// visibility into store size and compaction pressure without scanning
// the data directory by hand.
type Stats struct {
	Generations int
	Keys        int
	Uncompacted int64
}

// Store is the façade described in spec.md section 4.5: it owns the
// writer for the current generation, the reader fleet keyed by
// generation, the key index, and the uncompacted-bytes counter.
type Store struct {
	dir                 string
	compactionThreshold int64

	readers    map[uint64]*posReader
	writer     *posWriter
	currentGen uint64

	index       map[string]cmdPos
	uncompacted int64

	lock io.Closer // advisory flock on the directory, or nil
}

// Option configures a Store at Open time.
type Option func(*options)

type options struct {
	compactionThreshold int64
	lock                bool
}

// WithCompactionThreshold overrides DefaultCompactionThreshold.
func WithCompactionThreshold(bytes int64) Option {
	return func(o *options) { o.compactionThreshold = bytes }
}

// WithLock enables (the default) or disables taking an advisory
// exclusive flock on the data directory for the lifetime of the Store,
// the hardening spec.md section 5 recommends against accidental
// multi-process use. Disabling it is occasionally useful on filesystems
// that don't support flock (e.g. some network mounts).
func WithLock(enabled bool) Option {
	return func(o *options) { o.lock = enabled }
}

// Open opens (creating if absent) a Store rooted at dir. It replays
// every existing generation's log, in ascending order, to rebuild the
// in-memory index, then creates a fresh current generation to write to.
func Open(dir string, opts ...Option) (*Store, error) {
	const op = "Open"
	o := options{compactionThreshold: DefaultCompactionThreshold, lock: true}
	for _, fn := range opts {
		fn(&o)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.E(op, errors.IO, err)
	}

	var lk ioCloser
	if o.lock {
		l, err := acquireLock(dir)
		if err != nil {
			return nil, errors.E(op, errors.IO, err)
		}
		lk = l
	}

	gens, err := sortedGenerations(dir)
	if err != nil {
		closeQuietly(lk)
		return nil, errors.E(op, err)
	}

	s := &Store{
		dir:                 dir,
		compactionThreshold: o.compactionThreshold,
		readers:             make(map[uint64]*posReader, len(gens)+1),
		index:               make(map[string]cmdPos),
		lock:                lk,
	}

	for _, gen := range gens {
		r, err := openReader(dir, gen)
		if err != nil {
			s.closeReaders()
			closeQuietly(lk)
			return nil, errors.E(op, err)
		}
		s.readers[gen] = r

		delta, err := loadGeneration(gen, r, s.index)
		if err != nil {
			s.closeReaders()
			closeQuietly(lk)
			return nil, errors.E(op, "replay", err)
		}
		s.uncompacted += delta
		log.Debug.Printf("barrel: replayed generation %d, uncompacted now %d", gen, s.uncompacted)
	}

	current := uint64(0)
	if len(gens) > 0 {
		current = gens[len(gens)-1]
	}
	current++

	w, r, err := createGeneration(dir, current)
	if err != nil {
		s.closeReaders()
		closeQuietly(lk)
		return nil, errors.E(op, err)
	}
	s.writer = w
	s.readers[current] = r
	s.currentGen = current

	return s, nil
}

func closeQuietly(c ioCloser) {
	if c != nil {
		_ = c.Close()
	}
}

func openReader(dir string, gen uint64) (*posReader, error) {
	f, err := os.Open(logPath(dir, gen))
	if err != nil {
		return nil, errors.E("openReader", errors.IO, err)
	}
	r, err := newPosReader(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return r, nil
}

// createGeneration creates gen's log file if absent (an existing file is
// opened for append, not truncated), opening both a
// writer bound to it and a reader for the fleet, mirroring
// upspin.io/dir/server/serverlog's New, which opens the writer
// O_APPEND|O_CREATE and separately opens a read-only descriptor.
func createGeneration(dir string, gen uint64) (*posWriter, *posReader, error) {
	path := logPath(dir, gen)
	wf, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, errors.E("createGeneration", errors.IO, err)
	}
	w, err := newPosWriter(wf)
	if err != nil {
		_ = wf.Close()
		return nil, nil, err
	}
	r, err := openReader(dir, gen)
	if err != nil {
		_ = w.Close()
		return nil, nil, err
	}
	return w, r, nil
}

// Get looks up key and returns its current value. The boolean result
// reports whether the key is present; a missing key is not an error.
func (s *Store) Get(key string) (string, bool, error) {
	const op = "Get"
	pos, ok := s.index[key]
	if !ok {
		return "", false, nil
	}

	r, ok := s.readers[pos.gen]
	if !ok {
		return "", false, errors.E(op, key, errors.IO,
			errors.Errorf("no reader for generation %d", pos.gen))
	}
	if err := r.SeekTo(pos.pos); err != nil {
		return "", false, errors.E(op, key, err)
	}
	cmd, err := decodeOne(r.Take(pos.len))
	if err != nil {
		return "", false, errors.E(op, key, err)
	}
	if cmd.Op != opSet {
		return "", false, errors.E(op, key, errors.UnexpectedCommandType,
			errors.Errorf("indexed position decoded to op %q", cmd.Op))
	}
	return cmd.Value, true, nil
}

// Set durably writes key=value and updates the index to point at the
// new record. If writing pushes the uncompacted-bytes counter past the
// configured threshold, a compaction runs before Set returns.
func (s *Store) Set(key, value string) error {
	const op = "Set"
	if key == "" {
		return errors.E(op, errors.Invalid, errors.Str("key must not be empty"))
	}

	start := s.writer.Pos()
	if err := encodeCommand(s.writer, setCommand(key, value)); err != nil {
		return errors.E(op, key, err)
	}
	if err := s.writer.Flush(); err != nil {
		return errors.E(op, key, err)
	}
	length := s.writer.Pos() - start

	if old, had := s.index[key]; had {
		s.uncompacted += old.len
	}
	s.index[key] = cmdPos{gen: s.currentGen, pos: start, len: length}

	if s.uncompacted > s.compactionThreshold {
		if err := s.compact(); err != nil {
			return errors.E(op, key, err)
		}
	}
	return nil
}

// Remove deletes key. It fails with a NotExist-kind error if key is not
// present, and does not write a tombstone record in that case.
func (s *Store) Remove(key string) error {
	const op = "Remove"
	old, ok := s.index[key]
	if !ok {
		return errors.E(op, key, errors.NotExist)
	}

	if err := encodeCommand(s.writer, removeCommand(key)); err != nil {
		return errors.E(op, key, err)
	}
	if err := s.writer.Flush(); err != nil {
		return errors.E(op, key, err)
	}
	s.uncompacted += old.len
	delete(s.index, key)
	return nil
}

// Compact forces an immediate compaction, regardless of whether the
// uncompacted-bytes counter has crossed the configured threshold. Set
// triggers this automatically; Compact exists for operators (and
// cmd/barrelctl's compact subcommand) who want to reclaim space
// proactively, e.g. before a backup.
func (s *Store) Compact() error {
	if err := s.compact(); err != nil {
		return errors.E("Compact", err)
	}
	return nil
}

// Stats returns a snapshot of the store's current bookkeeping.
func (s *Store) Stats() Stats {
	return Stats{
		Generations: len(s.readers),
		Keys:        len(s.index),
		Uncompacted: s.uncompacted,
	}
}

// Close releases every open file descriptor the store holds: the
// current writer, every fleet reader, and the advisory directory lock,
// if any. Errors from the readers are aggregated with multierr so a
// single failure during teardown doesn't hide the others.
func (s *Store) Close() error {
	var err error
	if s.writer != nil {
		err = multierr.Append(err, s.writer.Close())
		s.writer = nil
	}
	err = multierr.Append(err, s.closeReaders())
	if s.lock != nil {
		err = multierr.Append(err, s.lock.Close())
		s.lock = nil
	}
	if err != nil {
		return errors.E("Close", errors.IO, err)
	}
	return nil
}

func (s *Store) closeReaders() error {
	var err error
	for gen, r := range s.readers {
		err = multierr.Append(err, r.Close())
		delete(s.readers, gen)
	}
	return err
}
