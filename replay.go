package barrel

import (
	"encoding/json"
	"io"

	"github.com/barreldb/barrel/errors"
)

// loadGeneration reads every record from gen's log, starting at offset 0,
// and updates index to reflect them, returning the number of bytes that
// became dead (superseded Set payloads, Remove payloads, and the Remove
// records themselves) along the way.
//
// Grounded on original_source/src/kv.rs's load, ported from a
// serde_json::Deserializer stream with byte_offset() to a loop over
// json.Decoder with InputOffset(); the bookkeeping rule for Remove
// (charging both the superseded entry's length and the Remove record's
// own length) is carried over unconditionally, resolving spec.md
// section 9's Open Question about the asymmetry between this path and
// Store.Remove, which does not retroactively charge uncompacted for a
// live tombstone it just wrote.
//
// Callers must process a directory's generations in ascending order so
// later writes deterministically shadow earlier ones (spec.md section
// 4.4's ordering rule).
func loadGeneration(gen uint64, r *posReader, index map[string]cmdPos) (int64, error) {
	const op = "loadGeneration"
	if err := r.SeekTo(0); err != nil {
		return 0, errors.E(op, err)
	}

	// json.Decoder buffers reads internally, so it may pull bytes from r
	// well past the boundary of the record it just parsed. We track the
	// logical end of each record via dec.InputOffset(), not r.Pos(), and
	// resync r to that offset once decoding stops.
	dec := json.NewDecoder(r)

	var uncompacted int64
	pos := int64(0)
	for {
		var cmd command
		if err := dec.Decode(&cmd); err != nil {
			if err == io.EOF {
				break
			}
			return uncompacted, errors.E(op, errors.Corrupt, err)
		}
		newPos := dec.InputOffset()

		switch cmd.Op {
		case opSet:
			if old, had := index[cmd.Key]; had {
				uncompacted += old.len
			}
			index[cmd.Key] = cmdPos{gen: gen, pos: pos, len: newPos - pos}
		case opRemove:
			if old, had := index[cmd.Key]; had {
				uncompacted += old.len
				delete(index, cmd.Key)
			}
			uncompacted += newPos - pos
		default:
			return uncompacted, errors.E(op, errors.Corrupt,
				errors.Errorf("generation %d: unrecognized op %q at offset %d", gen, cmd.Op, pos))
		}
		pos = newPos
	}

	if err := r.SeekTo(pos); err != nil {
		return uncompacted, errors.E(op, err)
	}
	return uncompacted, nil
}
