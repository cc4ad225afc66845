package barrel

import (
	"bufio"
	"io"
	"os"

	"github.com/barreldb/barrel/errors"
)

// posReader is a buffered reader over a log file that tracks its own
// absolute byte offset so the store can publish (gen, pos, len) index
// entries without an extra os.File.Seek/Stat round trip per read.
//
// Grounded on the positioned-reader half of
// upspin.io/dir/server/serverlog's Reader, generalized from a
// multi-generation fleet member to a single-file wrapper; the fleet
// itself lives in Store.
type posReader struct {
	file *os.File
	buf  *bufio.Reader
	pos  int64
}

func newPosReader(f *os.File) (*posReader, error) {
	off, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, errors.E("newPosReader", errors.IO, err)
	}
	return &posReader{
		file: f,
		buf:  bufio.NewReader(f),
		pos:  off,
	}, nil
}

// Pos returns the current absolute read offset.
func (r *posReader) Pos() int64 { return r.pos }

// Read implements io.Reader.
func (r *posReader) Read(p []byte) (int, error) {
	n, err := r.buf.Read(p)
	r.pos += int64(n)
	return n, err
}

// ReadByte implements io.ByteReader, which json.Decoder relies on for
// efficient token scanning.
func (r *posReader) ReadByte() (byte, error) {
	b, err := r.buf.ReadByte()
	if err == nil {
		r.pos++
	}
	return b, err
}

// SeekTo repositions the reader at an absolute offset, discarding any
// buffered bytes. If the reader is already at offset, it does nothing and
// keeps its buffer.
func (r *posReader) SeekTo(offset int64) error {
	if offset == r.pos {
		return nil
	}
	off, err := r.file.Seek(offset, io.SeekStart)
	if err != nil {
		return errors.E("posReader.SeekTo", errors.IO, err)
	}
	r.buf.Reset(r.file)
	r.pos = off
	return nil
}

// Take returns a reader bounded to at most n bytes starting at the
// reader's current position. Reading through it advances r's position
// as usual.
func (r *posReader) Take(n int64) io.Reader {
	return io.LimitReader(r, n)
}

func (r *posReader) Close() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	if err != nil {
		return errors.E("posReader.Close", errors.IO, err)
	}
	return nil
}

// posWriter is an append-only writer over a log file that tracks its own
// absolute byte offset, so Store.Set can compute a record's (pos, len)
// from two Pos() calls instead of stat-ing the file.
//
// Grounded on the positioned-writer half of
// upspin.io/dir/server/serverlog's Writer; that type also does an
// f.Sync() after every Write, a discipline this wrapper preserves via
// Flush.
type posWriter struct {
	file *os.File
	buf  *bufio.Writer
	pos  int64
}

func newPosWriter(f *os.File) (*posWriter, error) {
	off, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, errors.E("newPosWriter", errors.IO, err)
	}
	return &posWriter{
		file: f,
		buf:  bufio.NewWriter(f),
		pos:  off,
	}, nil
}

// Pos returns the offset the next Write will land at.
func (w *posWriter) Pos() int64 { return w.pos }

// Write implements io.Writer.
func (w *posWriter) Write(p []byte) (int, error) {
	n, err := w.buf.Write(p)
	w.pos += int64(n)
	return n, err
}

// Flush pushes buffered bytes to the OS and fsyncs the file, so that any
// offset published in the index right after Flush returns is immediately
// visible to a reader of the same file.
func (w *posWriter) Flush() error {
	if err := w.buf.Flush(); err != nil {
		return errors.E("posWriter.Flush", errors.IO, err)
	}
	if err := w.file.Sync(); err != nil {
		return errors.E("posWriter.Flush", errors.IO, err)
	}
	return nil
}

func (w *posWriter) Close() error {
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	if err != nil {
		return errors.E("posWriter.Close", errors.IO, err)
	}
	return nil
}
