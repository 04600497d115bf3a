package badger

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/poiesic/scandex/core"
)

// Key prefixes for different data types. The primary prefix must not be a
// prefix of any index prefix so prefix iteration stays disjoint.
const (
	documentPrefix     = "doc:"
	documentDatePrefix = "docd:"
	documentTypePrefix = "doct:"
)

// makeDocumentKey generates a key for a document by ID.
func makeDocumentKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s%d", documentPrefix, id))
}

// makeDateKey generates a composite key for the date index.
// Format: prefix + timestamp + id
func makeDateKey(timestamp time.Time, id core.ID) []byte {
	prefixBytes := []byte(documentDatePrefix)
	prefixSize := len(prefixBytes)
	buf := make([]byte, prefixSize+16) // 8 bytes for timestamp + 8 bytes for ID
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(timestamp.UnixMicro()))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialDateKey generates a partial key for date range queries.
// Format: prefix + timestamp
func makePartialDateKey(timestamp time.Time) []byte {
	prefixBytes := []byte(documentDatePrefix)
	prefixSize := len(prefixBytes)
	buf := make([]byte, prefixSize+8)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(timestamp.UnixMicro()))
	return buf
}

// makeTypeKey generates a composite key for the document type index.
// Format: prefix + type + ':' + id
func makeTypeKey(documentType string, id core.ID) []byte {
	prefix := documentTypePrefix + documentType + ":"
	prefixBytes := []byte(prefix)
	buf := make([]byte, len(prefixBytes)+8)
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialTypeKey generates a partial key for type index scans.
func makePartialTypeKey(documentType string) []byte {
	return []byte(documentTypePrefix + documentType + ":")
}
