package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
)

// EnsureBucket creates bucket when it does not exist yet.
func EnsureBucket(ctx context.Context, client Client, bucket string) error {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", bucket, err)
	}
	if exists {
		return nil
	}
	if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
	}
	return nil
}

// PutNDJSON writes records as newline-delimited JSON to bucket/key in one upload,
// replacing any previous object.
func PutNDJSON[T any](ctx context.Context, client Client, bucket, key string, records []T) (minio.UploadInfo, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for i := range records {
		if err := enc.Encode(records[i]); err != nil {
			return minio.UploadInfo{}, fmt.Errorf("failed to encode record %d: %w", i, err)
		}
	}

	info, err := client.PutObject(ctx, bucket, key, bytes.NewReader(buf.Bytes()), int64(buf.Len()), minio.PutObjectOptions{
		ContentType: "application/x-ndjson",
	})
	if err != nil {
		return minio.UploadInfo{}, fmt.Errorf("failed to upload %s/%s: %w", bucket, key, err)
	}
	return info, nil
}

// GetNDJSON reads every record of a newline-delimited JSON object.
func GetNDJSON[T any](ctx context.Context, client Client, bucket, key string) ([]T, error) {
	obj, err := client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s/%s: %w", bucket, key, err)
	}
	defer obj.Close()

	dec := json.NewDecoder(obj)
	var records []T
	for {
		var rec T
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode record %d of %s/%s: %w", len(records)+1, bucket, key, err)
		}
		records = append(records, rec)
	}
	return records, nil
}
