// Package manifest implements the append-only log of version edits that,
// folded together with the WAL and SST files on disk, reconstructs the
// engine's state after a restart. Each line of the file is one
// JSON-encoded VersionEdit.
package manifest

import (
	"bufio"
	"encoding/json"
	"os"

	"github.com/Priyanshu23/FlintDBGo/fileio"
	"github.com/pkg/errors"
)

// Manifest appends version edits to the log file.
type Manifest struct {
	writer *fileio.Writer
	closed bool
}

// Recover opens the manifest at path and returns it together with the edits
// already recorded, in file order. A missing file yields an empty edit list.
func Recover(path string) (*Manifest, []VersionEdit, error) {
	edits, err := readEdits(path)
	if err != nil {
		return nil, nil, err
	}

	writer, err := fileio.OpenAppend(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "open manifest")
	}
	return &Manifest{writer: writer}, edits, nil
}

func readEdits(path string) ([]VersionEdit, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "open manifest")
	}
	defer f.Close()

	var edits []VersionEdit
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var edit VersionEdit
		if err := json.Unmarshal(line, &edit); err != nil {
			return nil, errors.Wrapf(err, "manifest line %d", len(edits)+1)
		}
		edits = append(edits, edit)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read manifest")
	}
	return edits, nil
}

// AddRecord encodes one edit as a JSON line and durably appends it.
func (m *Manifest) AddRecord(edit VersionEdit) error {
	encoded, err := json.Marshal(edit)
	if err != nil {
		return errors.Wrap(err, "encode version edit")
	}
	encoded = append(encoded, '\n')
	return errors.Wrap(m.writer.AppendAndSync(encoded), "append version edit")
}

// Close closes the log file. Subsequent calls are no-ops.
func (m *Manifest) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	return m.writer.Close()
}

// State is the fold of a sequence of version edits.
type State struct {
	// Files maps level to the file ids recorded at that level, in record order.
	Files map[uint64][]uint64
	// WALs are the recorded WAL ids, in record order.
	WALs []uint64
	// MaxID is the highest file id seen across files and WALs; valid only
	// when HasID is true.
	MaxID uint64
	HasID bool
}

// Fold replays edits into the live-file and live-WAL view recovery starts
// from.
func Fold(edits []VersionEdit) State {
	state := State{Files: make(map[uint64][]uint64)}

	observe := func(id uint64) {
		if !state.HasID || id > state.MaxID {
			state.MaxID = id
			state.HasID = true
		}
	}

	for _, edit := range edits {
		for _, file := range edit.NewFiles {
			state.Files[file.Level] = append(state.Files[file.Level], file.FileID)
			observe(file.FileID)
		}
		if edit.WALAddition != nil {
			state.WALs = append(state.WALs, edit.WALAddition.FileID)
			observe(edit.WALAddition.FileID)
		}
	}
	return state
}
