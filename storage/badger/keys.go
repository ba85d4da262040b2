package badger

import "fmt"

// Key prefixes for different data types
const (
	chunkRecordPrefix = "chkrec"
	corpusStateKey    = "chkstate"
)

// makeChunkKey generates a key for a chunk record by ID.
func makeChunkKey(id string) []byte {
	return []byte(fmt.Sprintf("%s:%s", chunkRecordPrefix, id))
}

// chunkIterPrefix returns the prefix covering all chunk record keys.
func chunkIterPrefix() []byte {
	return []byte(chunkRecordPrefix + ":")
}

// makeCorpusStateKey generates the key holding collection-level embedding
// state (method and dimension the corpus was embedded under).
func makeCorpusStateKey() []byte {
	return []byte(corpusStateKey)
}
