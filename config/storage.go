package config

import (
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
)

// Storage is the process-wide blob store handle. The engine only stores and
// resolves object keys; it never inspects image bytes.
var Storage *BlobStore

type BlobStore struct {
	bucket *oss.Bucket
}

// InitStorage connects to the OSS bucket named by the environment. A missing
// configuration disables image storage; bad credentials are fatal.
func InitStorage() {
	endpoint := os.Getenv("OSS_ENDPOINT")
	keyID := os.Getenv("OSS_ACCESS_KEY_ID")
	secret := os.Getenv("OSS_ACCESS_KEY_SECRET")
	bucketName := os.Getenv("OSS_BUCKET")

	if endpoint == "" || bucketName == "" {
		log.Println("OSS not configured (OSS_ENDPOINT/OSS_BUCKET), image storage disabled")
		return
	}

	client, err := oss.New(endpoint, keyID, secret)
	if err != nil {
		log.Fatal("Failed to create OSS client:", err)
	}

	bucket, err := client.Bucket(bucketName)
	if err != nil {
		log.Fatal("Failed to open OSS bucket:", err)
	}

	Storage = &BlobStore{bucket: bucket}
	log.Println("Object storage connected successfully")
}

// Put uploads the object under key and returns the key.
func (s *BlobStore) Put(key string, r io.Reader) (string, error) {
	if err := s.bucket.PutObject(key, r); err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return key, nil
}

// SignedURL returns a pre-signed URL for the given method ("GET" or "PUT").
func (s *BlobStore) SignedURL(key, method string, ttl time.Duration) (string, error) {
	httpMethod := oss.HTTPGet
	if method == "PUT" {
		httpMethod = oss.HTTPPut
	}
	url, err := s.bucket.SignURL(key, httpMethod, int64(ttl.Seconds()))
	if err != nil {
		return "", fmt.Errorf("sign url for %s: %w", key, err)
	}
	return url, nil
}

// Delete removes the object. Missing objects are not an error.
func (s *BlobStore) Delete(key string) error {
	return s.bucket.DeleteObject(key)
}

// SignedURLTTL reads the configured URL lifetime, defaulting to 15 minutes.
func SignedURLTTL() time.Duration {
	if v := os.Getenv("OSS_SIGNED_URL_TTL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return 15 * time.Minute
}
