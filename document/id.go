package document

import (
	"strconv"

	"github.com/google/uuid"
)

var chunkNamespace = uuid.MustParse("6f1c2a9e-3b7d-4e8a-9c41-2d5f7b8e0a13")

// ChunkID derives a stable identifier from the chunk's position so that
// re-ingesting a document overwrites its previous chunks.
func ChunkID(source string, pageNumber, ordinal int) string {
	key := source + "|" + strconv.Itoa(pageNumber) + "|" + strconv.Itoa(ordinal)
	return uuid.NewMD5(chunkNamespace, []byte(key)).String()
}
