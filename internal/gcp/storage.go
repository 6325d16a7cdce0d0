package gcp

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// Bucket is the write-only object store the publisher uploads finished
// artifacts to. Uploaded objects are made publicly readable and their
// retrieval URL is returned.
type Bucket struct {
	client *storage.Client
	name   string
}

func NewBucket(ctx context.Context, bucketName string) (*Bucket, error) {
	if bucketName == "" {
		return nil, fmt.Errorf("bucket name must be provided")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &Bucket{client: client, name: bucketName}, nil
}

func (b *Bucket) Close() error {
	return b.client.Close()
}

// Upload writes the local file to objectKey only if the object doesn't
// already exist, so re-running an interrupted publish phase never
// re-transfers finished artifacts.
func (b *Bucket) Upload(ctx context.Context, objectKey, localPath string) (string, error) {
	localFile, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("could not open local file %s: %w", localPath, err)
	}
	defer localFile.Close()

	writeCtx, cancel := context.WithTimeout(ctx, 50*time.Second)
	defer cancel()

	obj := b.client.Bucket(b.name).Object(objectKey)
	writer := obj.If(storage.Conditions{DoesNotExist: true}).NewWriter(writeCtx)

	if _, err := io.Copy(writer, localFile); err != nil {
		_ = writer.Close()
		if !alreadyExists(err) {
			return "", fmt.Errorf("io.Copy to bucket failed: %w", err)
		}
	} else if err := writer.Close(); err != nil && !alreadyExists(err) {
		return "", fmt.Errorf("failed to finalize upload: %w", err)
	}

	if err := obj.ACL().Set(ctx, storage.AllUsers, storage.RoleReader); err != nil {
		return "", fmt.Errorf("failed to make object public: %w", err)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", b.name, objectKey), nil
}

// alreadyExists reports whether err is the precondition failure raised
// when the object was uploaded by a previous run.
func alreadyExists(err error) bool {
	if gerr, ok := err.(*googleapi.Error); ok && gerr.Code == 412 {
		return true
	}
	return false
}
