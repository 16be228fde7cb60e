package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/humanprotocol/reputation-oracle/config"
)

var ErrUnexpectedStatus = errors.New("unexpected storage response status")

const maxObjectSize = 64 << 20

// Client talks to an S3 compatible bucket over plain HTTP. Objects are
// addressed as <endpoint>/<bucket>/<key> and are content-addressed by the
// hex sha256 of their bytes.
type Client struct {
	endpoint string
	bucket   string
	client   *http.Client
}

func NewClient(cfg *config.StorageConfig) *Client {
	return &Client{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		bucket:   cfg.Bucket,
		client:   &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *Client) ObjectURL(key string) string {
	return c.endpoint + "/" + path.Join(c.bucket, key)
}

func (c *Client) Download(ctx context.Context, url string) ([]byte, error) {
	defer ObserveDuration(http.MethodGet)()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("can't create download request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("can't download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download %s returned %d: %w", url, resp.StatusCode, ErrUnexpectedStatus)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxObjectSize))
	if err != nil {
		return nil, fmt.Errorf("can't read %s: %w", url, err)
	}
	return data, nil
}

func (c *Client) DownloadJSON(ctx context.Context, url string, v interface{}) error {
	data, err := c.Download(ctx, url)
	if err != nil {
		return err
	}
	if err = json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("can't decode %s: %w", url, err)
	}
	return nil
}

// Upload stores data under key and returns the public object url.
func (c *Client) Upload(ctx context.Context, key, contentType string, data []byte) (string, error) {
	defer ObserveDuration(http.MethodPut)()

	url := c.ObjectURL(key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("can't create upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = int64(len(data))

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("can't upload %s: %w", key, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("upload %s returned %d: %w", key, resp.StatusCode, ErrUnexpectedStatus)
	}
	return url, nil
}

// UploadJSON stores v as <hash>.json and returns its url and content hash.
// Uploading equal content twice yields the same object.
func (c *Client) UploadJSON(ctx context.Context, v interface{}) (string, string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", "", fmt.Errorf("can't encode object: %w", err)
	}
	hash := Hash(data)
	url, err := c.Upload(ctx, hash+".json", "application/json", data)
	if err != nil {
		return "", "", err
	}
	return url, hash, nil
}

// CopyFromURL copies the object at srcURL into the bucket keeping its file
// extension.
func (c *Client) CopyFromURL(ctx context.Context, srcURL string) (string, string, error) {
	data, err := c.Download(ctx, srcURL)
	if err != nil {
		return "", "", err
	}
	hash := Hash(data)
	url, err := c.Upload(ctx, hash+path.Ext(srcURL), "application/octet-stream", data)
	if err != nil {
		return "", "", err
	}
	return url, hash, nil
}

func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
