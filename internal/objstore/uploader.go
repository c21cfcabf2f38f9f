// Package objstore copies attachments to S3-compatible object storage
// so they are publicly dereferenceable.
package objstore

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/amirulm/aidlog/internal/config"
)

// Uploader stores files in a single bucket and returns public URLs.
type Uploader struct {
	client        *minio.Client
	bucket        string
	publicBaseURL string
	httpClient    *http.Client
}

// New creates an Uploader from configuration.
func New(cfg config.ObjectStoreConfig) (*Uploader, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating object store client: %w", err)
	}

	base := cfg.PublicBaseURL
	if base == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		base = fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket)
	}

	return &Uploader{
		client:        client,
		bucket:        cfg.Bucket,
		publicBaseURL: strings.TrimRight(base, "/"),
		httpClient:    &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// UploadFromURL fetches srcURL and stores it under objectName,
// returning the public URL.
func (u *Uploader) UploadFromURL(ctx context.Context, srcURL, objectName, contentType string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srcURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating download request: %w", err)
	}

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("downloading file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected download status %d", resp.StatusCode)
	}

	_, err = u.client.PutObject(ctx, u.bucket, objectName, resp.Body, resp.ContentLength,
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("storing object: %w", err)
	}

	return u.publicBaseURL + "/" + objectName, nil
}
