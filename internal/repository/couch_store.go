package repository

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/go-kivik/kivik/v4"
)

type couchStore struct {
	client *kivik.Client
	dbName string
}

// NewCouchStore returns a BlobStore keeping each key as a CouchDB document.
// Blob bytes live base64-encoded in the document body, so the journal
// snapshot travels as ordinary JSON.
func NewCouchStore(client *kivik.Client, dbName string) BlobStore {
	return &couchStore{
		client: client,
		dbName: dbName,
	}
}

func (s *couchStore) docID(key string) string {
	return fmt.Sprintf("blob:%s", key)
}

func (s *couchStore) Get(key string) ([]byte, error) {
	db := s.client.DB(s.dbName)

	row := db.Get(context.Background(), s.docID(key))

	var doc struct {
		Data string `json:"data"`
	}
	if err := row.ScanDoc(&doc); err != nil {
		if kivik.HTTPStatus(err) == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch blob %s: %w", key, err)
	}

	data, err := base64.StdEncoding.DecodeString(doc.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode blob %s: %w", key, err)
	}
	return data, nil
}

func (s *couchStore) Set(key string, data []byte) error {
	db := s.client.DB(s.dbName)
	docID := s.docID(key)

	doc := map[string]interface{}{
		"data": base64.StdEncoding.EncodeToString(data),
	}

	var existing map[string]interface{}
	row := db.Get(context.Background(), docID)
	if err := row.ScanDoc(&existing); err == nil {
		doc["_rev"] = existing["_rev"]
	} else if kivik.HTTPStatus(err) != http.StatusNotFound {
		return fmt.Errorf("failed to fetch existing blob %s: %w", key, err)
	}

	if _, err := db.Put(context.Background(), docID, doc); err != nil {
		return fmt.Errorf("failed to store blob %s: %w", key, err)
	}
	return nil
}

func (s *couchStore) Remove(key string) error {
	db := s.client.DB(s.dbName)
	docID := s.docID(key)

	var existing map[string]interface{}
	row := db.Get(context.Background(), docID)
	if err := row.ScanDoc(&existing); err != nil {
		if kivik.HTTPStatus(err) == http.StatusNotFound {
			return nil
		}
		return fmt.Errorf("failed to fetch blob %s for removal: %w", key, err)
	}

	rev, _ := existing["_rev"].(string)
	if _, err := db.Delete(context.Background(), docID, rev); err != nil {
		return fmt.Errorf("failed to remove blob %s: %w", key, err)
	}
	return nil
}
