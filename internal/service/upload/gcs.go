package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"

	"motioncam/internal/logger"
	"motioncam/internal/model"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// defaultChunkSize keeps memory use small on the device.
const defaultChunkSize = 256 * 1024

// GCSClient uploads to Google Cloud Storage.
type GCSClient struct {
	client    *storage.Client
	bucket    string
	signer    *URLSigner
	chunkSize int
	ready     atomic.Bool
	logger    *logger.Logger
}

// NewGCSClient creates a client. An empty credentialsFile uses application default credentials.
func NewGCSClient(ctx context.Context, bucket, credentialsFile string, signer *URLSigner, logger *logger.Logger) (*GCSClient, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &GCSClient{
		client:    client,
		bucket:    bucket,
		signer:    signer,
		chunkSize: defaultChunkSize,
		logger:    logger,
	}, nil
}

// Authenticate verifies the credentials can see the bucket.
func (c *GCSClient) Authenticate(ctx context.Context) error {
	if _, err := c.client.Bucket(c.bucket).Attrs(ctx); err != nil {
		c.ready.Store(false)
		return fmt.Errorf("failed to access bucket %s: %w", c.bucket, err)
	}
	c.ready.Store(true)
	c.logger.Info("Cloud storage session ready for bucket %s", c.bucket)
	return nil
}

// Ready reports whether the last authentication succeeded and has not been revoked.
func (c *GCSClient) Ready() bool {
	return c.ready.Load()
}

// Upload writes body to the task's object.
func (c *GCSClient) Upload(ctx context.Context, task model.UploadTask, body io.Reader) (string, error) {
	w := c.client.Bucket(task.Bucket).Object(task.RemotePath).NewWriter(ctx)
	w.ContentType = task.ContentType
	w.ChunkSize = c.chunkSize

	if _, err := io.Copy(w, body); err != nil {
		_ = w.Close()
		return "", c.classify(err)
	}
	if err := w.Close(); err != nil {
		return "", c.classify(err)
	}

	return c.signer.URL(task.Bucket, task.RemotePath)
}

// classify drops readiness when the service rejects the credentials.
func (c *GCSClient) classify(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && (apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden) {
		c.ready.Store(false)
		c.logger.Warning("Cloud storage rejected credentials, uploads disabled until re-authenticated")
	}
	return err
}

// Close releases the underlying client.
func (c *GCSClient) Close() error {
	return c.client.Close()
}
