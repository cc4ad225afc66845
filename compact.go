package barrel

import (
	"io"
	"os"

	"go.uber.org/multierr"

	"github.com/barreldb/barrel/errors"
	"github.com/barreldb/barrel/log"
)

// compact rewrites every live record into a fresh generation and deletes
// the now-stale ones, per spec.md section 4.6. It reserves two new
// generation numbers before copying anything: compactionGen, the target
// of the rewrite, and newCurrent, the store's next writer generation.
// Rotating the writer to newCurrent before any bytes are copied means a
// Set that happened to race this call (were the store not
// single-threaded) would land in a generation strictly greater than
// compactionGen and therefore never among the files deleted at the end.
//
// Grounded on original_source/src/kv.rs's compact, generalized from its
// single-threaded Rust borrow-checked loop to Go's map iteration plus
// io.Copy, and on upspin.io/dir/server/serverlog's pattern of closing a
// reader before unlinking its file (required on platforms that refuse to
// remove an open file).
func (s *Store) compact() error {
	const op = "compact"

	compactionGen := s.currentGen + 1
	newCurrent := s.currentGen + 2

	newWriter, newReader, err := createGeneration(s.dir, newCurrent)
	if err != nil {
		return errors.E(op, err)
	}
	compactionWriter, compactionReader, err := createGeneration(s.dir, compactionGen)
	if err != nil {
		_ = newWriter.Close()
		_ = newReader.Close()
		_ = os.Remove(logPath(s.dir, newCurrent))
		return errors.E(op, err)
	}

	oldWriter := s.writer
	s.writer = newWriter
	s.currentGen = newCurrent
	s.readers[newCurrent] = newReader
	s.readers[compactionGen] = compactionReader

	var newPos int64
	for key, pos := range s.index {
		r, ok := s.readers[pos.gen]
		if !ok {
			return errors.E(op, key, errors.IO,
				errors.Errorf("no reader for generation %d", pos.gen))
		}
		if err := r.SeekTo(pos.pos); err != nil {
			return errors.E(op, key, err)
		}
		n, err := io.Copy(compactionWriter, r.Take(pos.len))
		if err != nil {
			return errors.E(op, key, errors.IO, err)
		}
		s.index[key] = cmdPos{gen: compactionGen, pos: newPos, len: n}
		newPos += n
	}

	if err := compactionWriter.Flush(); err != nil {
		return errors.E(op, err)
	}
	if err := compactionWriter.Close(); err != nil {
		return errors.E(op, err)
	}

	// oldWriter's generation is compactionGen-1, already represented in
	// the reader fleet; it's about to be deleted below, so just release
	// the writer's own descriptor on the same file.
	if oldWriter != nil {
		if err := oldWriter.Close(); err != nil {
			return errors.E(op, err)
		}
	}

	removed := 0
	var cerr error
	for gen, r := range s.readers {
		if gen >= compactionGen {
			continue
		}
		cerr = multierr.Append(cerr, r.Close())
		delete(s.readers, gen)
		cerr = multierr.Append(cerr, os.Remove(logPath(s.dir, gen)))
		removed++
	}
	if cerr != nil {
		return errors.E(op, errors.IO, cerr)
	}

	s.uncompacted = 0
	log.Info.Printf("barrel: compacted %d generation(s) into %d bytes at generation %d; writer rotated to %d",
		removed, newPos, compactionGen, newCurrent)
	return nil
}
