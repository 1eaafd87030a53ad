// Package storage puts generated documents where members can download them.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/pkordes/tagconsole/internal/auth"
)

// S3Config holds the bucket settings.
type S3Config struct {
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	// Endpoint, when set, targets an S3-compatible service with path-style
	// addressing; public URLs are then built on it as well.
	Endpoint string
}

// putObject is the subset of *s3.Client used here.
type putObject interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader stores objects publicly readable in one bucket.
type S3Uploader struct {
	client putObject
	cfg    S3Config
}

// NewS3Uploader builds the client from static credentials.
func NewS3Uploader(ctx context.Context, cfg S3Config) (*S3Uploader, error) {
	if cfg.Bucket == "" || cfg.Region == "" {
		return nil, fmt.Errorf("storage.NewS3Uploader: bucket and region are required")
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage.NewS3Uploader: load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Uploader{client: client, cfg: cfg}, nil
}

// Upload writes body under key and returns its public URL.
func (u *S3Uploader) Upload(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
		ACL:         types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", fmt.Errorf("storage.S3Uploader.Upload: %w", err)
	}
	return u.URL(key), nil
}

// URL is the public address of key.
func (u *S3Uploader) URL(key string) string {
	escaped := escapeKey(key)
	if u.cfg.Endpoint != "" {
		return strings.TrimRight(u.cfg.Endpoint, "/") + "/" + u.cfg.Bucket + "/" + escaped
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", u.cfg.Bucket, u.cfg.Region, escaped)
}

// LocalUploader writes objects under a directory served at BaseURL.
type LocalUploader struct {
	Dir     string
	BaseURL string
}

// Upload writes body to Dir/key.
func (u *LocalUploader) Upload(_ context.Context, key string, body []byte, _ string) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	dst := filepath.Join(u.Dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("storage.LocalUploader.Upload: %w", err)
	}
	if err := os.WriteFile(dst, body, 0o644); err != nil {
		return "", fmt.Errorf("storage.LocalUploader.Upload: %w", err)
	}
	return strings.TrimRight(u.BaseURL, "/") + "/" + escapeKey(key), nil
}

// cleanKey rejects keys that would escape the bucket root.
func cleanKey(key string) (string, error) {
	k := strings.TrimSpace(key)
	if k == "" {
		return "", fmt.Errorf("storage: empty object key")
	}
	clean := path.Clean("/" + k)[1:]
	if clean == "" || clean != strings.TrimPrefix(k, "/") {
		return "", fmt.Errorf("storage: invalid object key %q", key)
	}
	return clean, nil
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

// ByteArray marshals as a JSON array of numbers rather than base64, the
// shape browsers produce from Array.from(Uint8Array).
type ByteArray []byte

func (b ByteArray) MarshalJSON() ([]byte, error) {
	ints := make([]int, len(b))
	for i, v := range b {
		ints[i] = int(v)
	}
	return json.Marshal(ints)
}

func (b *ByteArray) UnmarshalJSON(data []byte) error {
	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return fmt.Errorf("fileBody must be an array of bytes: %w", err)
	}
	out := make([]byte, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return fmt.Errorf("fileBody[%d] = %d is not a byte", i, v)
		}
		out[i] = byte(v)
	}
	*b = out
	return nil
}

// UploadRequest is the body of the upload gateway.
type UploadRequest struct {
	FileName    string    `json:"fileName"`
	FileBody    ByteArray `json:"fileBody"`
	ContentType string    `json:"contentType"`
}

// UploadResponse is the gateway's success body.
type UploadResponse struct {
	Message string `json:"message"`
	FileURL string `json:"fileUrl"`
}

// HTTPUploader sends objects through a remote upload gateway with the
// caller's session token.
type HTTPUploader struct {
	endpoint string
	client   *http.Client
}

// NewHTTPUploader constructs an HTTPUploader. A nil client uses
// http.DefaultClient.
func NewHTTPUploader(endpoint string, client *http.Client) *HTTPUploader {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPUploader{endpoint: endpoint, client: client}
}

// Upload posts body to the gateway and returns the stored URL.
func (u *HTTPUploader) Upload(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	payload, err := json.Marshal(UploadRequest{FileName: key, FileBody: body, ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("storage.HTTPUploader.Upload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("storage.HTTPUploader.Upload: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token, ok := auth.TokenFromContext(ctx); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("storage.HTTPUploader.Upload: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("storage.HTTPUploader.Upload: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			return "", fmt.Errorf("storage.HTTPUploader.Upload: gateway: %s", e.Error)
		}
		return "", fmt.Errorf("storage.HTTPUploader.Upload: gateway returned %d", resp.StatusCode)
	}
	var out UploadResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("storage.HTTPUploader.Upload: decode response: %w", err)
	}
	return out.FileURL, nil
}
