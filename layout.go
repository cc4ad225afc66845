package barrel

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/barreldb/barrel/errors"
)

const logExt = ".log"

// logPath returns the path of the log file for generation gen inside
// dir, e.g. dir/"7.log".
func logPath(dir string, gen uint64) string {
	return filepath.Join(dir, strconv.FormatUint(gen, 10)+logExt)
}

// sortedGenerations lists dir's *.log files, parses each stem as an
// unsigned generation number (silently skipping entries that don't
// parse, per spec), and returns them in ascending order.
//
// Grounded on upspin.io/dir/server/serverlog's logOffsetsFor, adapted
// from a descending offset list to an ascending generation list, and on
// original_source/src/kv.rs's sort_gen_list, which this mirrors almost
// field for field (list dir, filter by extension, parse stem, sort).
func sortedGenerations(dir string) ([]uint64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.E("sortedGenerations", errors.IO, err)
	}
	var gens []uint64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if filepath.Ext(name) != logExt {
			continue
		}
		stem := strings.TrimSuffix(name, logExt)
		gen, err := strconv.ParseUint(stem, 10, 64)
		if err != nil {
			continue
		}
		gens = append(gens, gen)
	}
	sort.Slice(gens, func(i, j int) bool { return gens[i] < gens[j] })
	return gens, nil
}
