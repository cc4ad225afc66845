package barrel

import (
	"encoding/json"
	"io"

	"github.com/barreldb/barrel/errors"
)

// op distinguishes the two kinds of mutation a log record can carry.
type op string

const (
	opSet    op = "set"
	opRemove op = "remove"
)

// command is the unit of logging: either Set(key, value) or Remove(key).
// It is framed as a single JSON object per record. encoding/json's
// Decoder is a streaming decoder: reading repeatedly from the same
// Decoder over a concatenation of objects yields one value per call and
// reports, via InputOffset, exactly how many bytes of the stream have
// been consumed so far. That self-delimiting behavior is what lets
// replay split an unknown number of records without a length prefix —
// the same technique original_source/src/kv.rs uses with
// serde_json::Deserializer's byte_offset(), ported to Go's json.Decoder.
type command struct {
	Op    op     `json:"op"`
	Key   string `json:"key"`
	Value string `json:"value,omitempty"`
}

func setCommand(key, value string) command {
	return command{Op: opSet, Key: key, Value: value}
}

func removeCommand(key string) command {
	return command{Op: opRemove, Key: key}
}

// encodeCommand appends the JSON encoding of cmd to w. It does not flush;
// callers that need the write durable must call the writer's own Flush.
func encodeCommand(w io.Writer, cmd command) error {
	if err := json.NewEncoder(w).Encode(cmd); err != nil {
		return errors.E("encodeCommand", errors.IO, err)
	}
	return nil
}

// decodeOne decodes exactly one command from r and returns it. It is
// used by Get, which bounds r to precisely the indexed record's length
// first.
func decodeOne(r io.Reader) (command, error) {
	var cmd command
	dec := json.NewDecoder(r)
	if err := dec.Decode(&cmd); err != nil {
		return command{}, errors.E("decodeOne", errors.Corrupt, err)
	}
	return cmd, nil
}
