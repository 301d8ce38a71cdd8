package cache

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	bolt "go.etcd.io/bbolt"

	"smartchunk/pkg/tokenizer"
)

var bucketName = []byte("token_counts")

// TokenCache persists token counts across runs, keyed by tokenizer
// identity and text hash. Counts are pure functions of text under a fixed
// tokenizer identity, so entries never expire.
type TokenCache struct {
	db    *bolt.DB
	inner tokenizer.Counter
}

func NewTokenCache(path string, inner tokenizer.Counter) (*TokenCache, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory for token cache: %w", err)
	}

	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open token cache: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	return &TokenCache{db: db, inner: inner}, nil
}

func (c *TokenCache) Count(text string) (int, error) {
	key := c.key(text)

	var cached int
	var found bool
	err := c.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketName).Get(key)
		if v == nil {
			return nil
		}
		n, err := strconv.Atoi(string(v))
		if err != nil {
			return nil // stale entry, recount
		}
		cached, found = n, true
		return nil
	})
	if err != nil {
		return 0, err
	}
	if found {
		return cached, nil
	}

	n, err := c.inner.Count(text)
	if err != nil {
		return 0, err
	}

	err = c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put(key, []byte(strconv.Itoa(n)))
	})
	if err != nil {
		return 0, fmt.Errorf("failed to store token count: %w", err)
	}
	return n, nil
}

func (c *TokenCache) Identity() string {
	return c.inner.Identity()
}

func (c *TokenCache) Close() error {
	return c.db.Close()
}

func (c *TokenCache) key(text string) []byte {
	h := sha256.Sum256([]byte(c.inner.Identity() + "\x00" + text))
	return h[:]
}
