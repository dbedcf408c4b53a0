package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/yono-dev/craftmind/internal/config"
	"github.com/yono-dev/craftmind/internal/domain"
)

// Uploader pushes image bytes to one hosting backend and returns a public
// URL.
type Uploader interface {
	Name() string
	Upload(ctx context.Context, data []byte) (string, error)
}

// UploadChain tries each backend in order and stops at the first that
// returns a syntactically valid URL. Backend failures are logged and the
// next backend is tried; only exhausting the chain is an error.
type UploadChain struct {
	backends []Uploader
}

func NewUploadChain(backends ...Uploader) *UploadChain {
	return &UploadChain{backends: backends}
}

// NewUploadChainFromConfig builds the chain: the configured primary backend
// first (S3 or ImgBB, when fully configured), then Catbox, then the
// time-limited Litterbox.
func NewUploadChainFromConfig(cfg *config.Config) (*UploadChain, error) {
	var backends []Uploader

	switch strings.ToLower(cfg.ImageHosting) {
	case "s3":
		if cfg.S3Configured() {
			s3, err := NewS3Uploader(cfg)
			if err != nil {
				return nil, err
			}
			backends = append(backends, s3)
		} else {
			slog.Warn("IMAGE_HOSTING=s3 but S3 settings are incomplete, skipping backend")
		}
	case "imgbb":
		if cfg.ImgBBConfigured() {
			backends = append(backends, NewImgBBUploader(cfg.ImgBBAPIKey))
		} else {
			slog.Warn("IMAGE_HOSTING=imgbb but IMGBB_API_KEY is not set, skipping backend")
		}
	}

	backends = append(backends, NewCatboxUploader(), NewLitterboxUploader())
	return NewUploadChain(backends...), nil
}

func (c *UploadChain) Upload(ctx context.Context, data []byte) (string, error) {
	for _, backend := range c.backends {
		imageURL, err := backend.Upload(ctx, data)
		if err != nil {
			slog.Warn("upload backend failed", "backend", backend.Name(), "error", err)
			continue
		}
		if !strings.HasPrefix(imageURL, "http://") && !strings.HasPrefix(imageURL, "https://") {
			slog.Warn("upload backend returned invalid url", "backend", backend.Name(), "url", truncate(imageURL, 100))
			continue
		}
		return imageURL, nil
	}
	return "", domain.ErrUploadExhausted
}

// ---- S3-compatible backend ----

type S3Uploader struct {
	client        *minio.Client
	bucket        string
	publicBaseURL string
}

func NewS3Uploader(cfg *config.Config) (*S3Uploader, error) {
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}
	return &S3Uploader{
		client:        client,
		bucket:        cfg.S3Bucket,
		publicBaseURL: strings.TrimRight(cfg.S3PublicBaseURL, "/"),
	}, nil
}

func (u *S3Uploader) Name() string { return "s3" }

func (u *S3Uploader) Upload(ctx context.Context, data []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, config.UploadTimeout)
	defer cancel()

	objectName := fmt.Sprintf("generated/%s/%s.png", time.Now().UTC().Format("2006-01"), uuid.NewString())
	_, err := u.client.PutObject(ctx, u.bucket, objectName, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "image/png"})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return u.publicBaseURL + "/" + objectName, nil
}

// ---- ImgBB backend ----

type ImgBBUploader struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

func NewImgBBUploader(apiKey string) *ImgBBUploader {
	return &ImgBBUploader{
		apiKey:   apiKey,
		endpoint: "https://api.imgbb.com/1/upload",
		client:   &http.Client{Timeout: config.UploadTimeout},
	}
}

func (u *ImgBBUploader) Name() string { return "imgbb" }

func (u *ImgBBUploader) Upload(ctx context.Context, data []byte) (string, error) {
	form := url.Values{}
	form.Set("image", base64.StdEncoding.EncodeToString(data))

	endpoint := u.endpoint + "?key=" + url.QueryEscape(u.apiKey)
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var result struct {
		Success bool `json:"success"`
		Data    struct {
			DisplayURL string `json:"display_url"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if !result.Success || result.Data.DisplayURL == "" {
		return "", fmt.Errorf("response indicates failure: %s", truncate(string(body), 200))
	}
	return result.Data.DisplayURL, nil
}

// ---- Catbox / Litterbox backends ----

type multipartUploader struct {
	name     string
	endpoint string
	origin   string
	fields   map[string]string
	client   *http.Client
}

func NewCatboxUploader() Uploader {
	return &multipartUploader{
		name:     "catbox",
		endpoint: "https://catbox.moe/user/api.php",
		origin:   "https://catbox.moe",
		fields:   map[string]string{"reqtype": "fileupload", "userhash": ""},
		client:   &http.Client{Timeout: config.UploadTimeout},
	}
}

func NewLitterboxUploader() Uploader {
	return &multipartUploader{
		name:     "litterbox",
		endpoint: "https://litterbox.catbox.moe/resources/internals/api.php",
		origin:   "https://litterbox.catbox.moe",
		fields:   map[string]string{"reqtype": "fileupload", "time": "72h"},
		client:   &http.Client{Timeout: config.UploadTimeout},
	}
}

func (u *multipartUploader) Name() string { return u.name }

func (u *multipartUploader) Upload(ctx context.Context, data []byte) (string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, value := range u.fields {
		if err := w.WriteField(name, value); err != nil {
			return "", fmt.Errorf("write form field: %w", err)
		}
	}
	fw, err := w.CreateFormFile("fileToUpload", "generated_image.png")
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := fw.Write(data); err != nil {
		return "", fmt.Errorf("write form file: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", u.endpoint, &buf)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	// Browser-shaped headers; the host sits behind Cloudflare and rejects
	// obvious bot traffic.
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/plain, */*")
	req.Header.Set("Origin", u.origin)
	req.Header.Set("Referer", u.origin+"/")

	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	result := strings.TrimSpace(string(body))
	if !strings.HasPrefix(result, "http://") && !strings.HasPrefix(result, "https://") {
		return "", fmt.Errorf("unexpected response body: %s", truncate(result, 200))
	}
	return result, nil
}
