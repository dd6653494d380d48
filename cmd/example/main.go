package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"cdnlocal/pkg/auth"
)

// getenv returns the value of the environment variable named by key or
// fallback if the variable is not present.
func getenv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

const (
	BucketName    = "example-bucket"
	ObjectName    = "Example.TXT"
	ObjectContent = "Hello from the local CDN example!\n"
)

// Client talks to the cdnlocal admin API.
type Client struct {
	endpoint string
	token    string
	user     string
	password string
	http     *http.Client
}

func (c *Client) do(ctx context.Context, method string, path string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, reader)
	if err != nil {
		return nil, err
	}

	if c.token != "" {
		req.Header.Set("Authorization", auth.BearerPrefix+c.token)
	} else {
		req.SetBasicAuth(c.user, c.password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

func expect(resp *http.Response, status ...int) error {
	for _, s := range status {
		if resp.StatusCode == s {
			return nil
		}
	}
	msg, _ := io.ReadAll(resp.Body)
	return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
}

// EnsureBucket creates the bucket; creating an existing bucket is a no-op.
func EnsureBucket(ctx context.Context, client *Client, bucketName string) error {
	resp, err := client.do(ctx, http.MethodPut, "/buckets/"+url.PathEscape(bucketName), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := expect(resp, http.StatusCreated); err != nil {
		return fmt.Errorf("failed to create bucket %q: %w", bucketName, err)
	}
	return nil
}

// UploadFile uploads an object to the specified bucket.
func UploadFile(ctx context.Context, client *Client, bucketName string, objectName string, objectContent []byte) error {
	resp, err := client.do(ctx, http.MethodPut, objectPath(bucketName, objectName), objectContent)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := expect(resp, http.StatusCreated); err != nil {
		return fmt.Errorf("failed to upload object %q to bucket %q: %w", objectName, bucketName, err)
	}
	slog.Info("Uploaded object to bucket", "object", objectName, "bucket", bucketName)
	return nil
}

// LocalPath asks the driver where the object lives on disk.
func LocalPath(ctx context.Context, client *Client, bucketName string, objectName string) (string, error) {
	resp, err := client.do(ctx, http.MethodGet, objectPath(bucketName, objectName)+"/path", nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := expect(resp, http.StatusOK); err != nil {
		return "", err
	}

	var out struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.Path, nil
}

// RenderURL renders one URL scheme with the given parameters.
func RenderURL(ctx context.Context, client *Client, scheme string, params url.Values) (string, error) {
	resp, err := client.do(ctx, http.MethodGet, "/urls/"+scheme+"?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := expect(resp, http.StatusOK); err != nil {
		return "", fmt.Errorf("failed to render %s URL: %w", scheme, err)
	}

	var out struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.URL, nil
}

// DeleteObject removes an object, then its bucket once it is empty.
func DeleteObject(ctx context.Context, client *Client, bucketName string, objectName string) error {
	resp, err := client.do(ctx, http.MethodDelete, objectPath(bucketName, objectName), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := expect(resp, http.StatusNoContent); err != nil {
		return fmt.Errorf("failed to delete object %q: %w", objectName, err)
	}
	return nil
}

func DeleteBucket(ctx context.Context, client *Client, bucketName string) error {
	resp, err := client.do(ctx, http.MethodDelete, "/buckets/"+url.PathEscape(bucketName), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := expect(resp, http.StatusNoContent); err != nil {
		return fmt.Errorf("failed to delete bucket %q: %w", bucketName, err)
	}
	return nil
}

func objectPath(bucketName string, objectName string) string {
	return "/buckets/" + url.PathEscape(bucketName) + "/objects/" + url.PathEscape(objectName)
}

func Run(ctx context.Context, client *Client) error {
	// Ensure bucket exists.
	if err := EnsureBucket(ctx, client, BucketName); err != nil {
		return fmt.Errorf("failed to ensure bucket exists: %w", err)
	}

	// 1. Upload an example file.
	if err := UploadFile(ctx, client, BucketName, ObjectName, []byte(ObjectContent)); err != nil {
		return fmt.Errorf("failed to upload example file: %w", err)
	}

	// 2. Where did it land?
	path, err := LocalPath(ctx, client, BucketName, ObjectName)
	if err != nil {
		return fmt.Errorf("failed to resolve local path: %w", err)
	}
	slog.Info("Object stored", "path", path)

	// 3. Render the URLs a page would embed.
	object := url.Values{"bucket": {BucketName}, "object": {ObjectName}}
	renders := []struct {
		scheme string
		params url.Values
	}{
		{"serve", object},
		{"serve-raw", object},
		{"crop", url.Values{"bucket": {BucketName}, "object": {ObjectName}, "width": {"64"}, "height": {"64"}}},
		{"placeholder", url.Values{"width": {"320"}, "height": {"200"}, "border": {"2"}}},
		{"blank-avatar", url.Values{"width": {"48"}, "height": {"48"}}},
		{"expiring", url.Values{"bucket": {BucketName}, "object": {ObjectName}, "expires": {"15m"}, "download": {"true"}}},
	}
	for _, r := range renders {
		u, err := RenderURL(ctx, client, r.scheme, r.params)
		if err != nil {
			return err
		}
		slog.Info("Rendered URL", "scheme", r.scheme, "url", u)
	}

	// 4. Clean up.
	if err := DeleteObject(ctx, client, BucketName, ObjectName); err != nil {
		return err
	}
	if err := DeleteBucket(ctx, client, BucketName); err != nil {
		return err
	}

	slog.Info("Example completed")
	return nil
}

func main() {
	ctx := context.Background()

	client := &Client{
		endpoint: strings.TrimRight(getenv("CDN_LOCAL_ENDPOINT", "http://localhost:9100"), "/"),
		user:     getenv("CDN_LOCAL_ACCESS_KEY", auth.DefaultAccessKeyID),
		password: getenv("CDN_LOCAL_SECRET_KEY", auth.DefaultSecretAccessKey),
		http:     &http.Client{Timeout: 30 * time.Second},
	}

	// With the server secret at hand, authenticate with a short-lived token
	// instead of basic credentials.
	if secret := os.Getenv("CDN_LOCAL_SECRET"); secret != "" {
		token, err := auth.NewJWTAuthEngine(secret).IssueToken("example", auth.RoleSuperuser, 5*time.Minute)
		if err != nil {
			slog.Error("failed to issue token", "error", err)
			os.Exit(1)
		}
		client.token = token
	}

	if err := Run(ctx, client); err != nil {
		slog.Error("example failed", "error", err)
		os.Exit(1)
	}
}
