package manifest

// NewFile declares one table file added at a level. Only level 0 is produced
// by the flush path today, but the encoding carries the level so deeper
// levels stay representable.
type NewFile struct {
	Level  uint64 `json:"level_"`
	FileID uint64 `json:"file_id_"`
}

// WALAddition declares a newly opened write-ahead log.
type WALAddition struct {
	FileID uint64 `json:"file_id_"`
}

// VersionEdit is one manifest record: any combination of new files and an
// optional new WAL.
type VersionEdit struct {
	NewFiles    []NewFile    `json:"new_files"`
	WALAddition *WALAddition `json:"wal_addition"`
}

// AddNewFile appends a file descriptor to the edit.
func (e *VersionEdit) AddNewFile(level, fileID uint64) {
	e.NewFiles = append(e.NewFiles, NewFile{Level: level, FileID: fileID})
}

// AddNewWAL records a newly opened WAL in the edit.
func (e *VersionEdit) AddNewWAL(fileID uint64) {
	e.WALAddition = &WALAddition{FileID: fileID}
}
