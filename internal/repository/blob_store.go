package repository

// BlobStore is the persistence substrate the journal writes its serialized
// snapshot through. A single fixed key holds the whole journal. Get returns
// (nil, nil) when the key has never been written; Remove of an absent key is
// not an error.
type BlobStore interface {
	Get(key string) ([]byte, error)
	Set(key string, data []byte) error
	Remove(key string) error
}
