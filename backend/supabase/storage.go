package supabase

import (
	"bytes"
	"context"

	storage "github.com/supabase-community/storage-go"
)

// Upload stores data under bucket/key without overwriting.
func (c *Client) Upload(ctx context.Context, bucket, key, contentType string, data []byte) error {
	cacheControl := "3600"
	upsert := false
	_, err := run(ctx, c.timeout, func() (storage.FileUploadResponse, error) {
		return c.storage(ctx).UploadFile(bucket, key, bytes.NewReader(data), storage.FileOptions{
			ContentType:  &contentType,
			CacheControl: &cacheControl,
			Upsert:       &upsert,
		})
	})
	return serviceError("upload", err)
}

// PublicURL is the object's address in a public bucket.
func (c *Client) PublicURL(bucket, key string) string {
	return c.storage(context.Background()).GetPublicUrl(bucket, key).SignedURL
}

// Remove deletes one object.
func (c *Client) Remove(ctx context.Context, bucket, key string) error {
	_, err := run(ctx, c.timeout, func() ([]storage.FileUploadResponse, error) {
		return c.storage(ctx).RemoveFile(bucket, []string{key})
	})
	return serviceError("remove", err)
}
