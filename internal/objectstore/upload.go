package objectstore

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
)

// urlHost is the fixed host the public download URL template uses.
const urlHost = "f000.backblazeb2.com"

// Upload authorizes (reusing the cached authorization when possible),
// fetches a fresh per-file upload URL, and POSTs the file content. A 401/403
// at any step invalidates the cached authorization and is retried once
// against a fresh authorize call before giving up — the retry tier above
// this belongs to the Upload Worker, not the client.
func (c *Client) Upload(ctx context.Context, localPath, remotePath string) (string, error) {
	publicURL, err := c.uploadOnce(ctx, localPath, remotePath)
	if err == nil {
		return publicURL, nil
	}

	var authErr *AuthError
	if !errors.As(err, &authErr) {
		return "", err
	}
	c.invalidate()
	return c.uploadOnce(ctx, localPath, remotePath)
}

func (c *Client) uploadOnce(ctx context.Context, localPath, remotePath string) (string, error) {
	auth, err := c.authorize()
	if err != nil {
		return "", err
	}

	f, err := os.Open(localPath)
	if err != nil {
		return "", &TransportError{Err: fmt.Errorf("open %s: %w", localPath, err)}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", &TransportError{Err: err}
	}

	sha1Hex, err := fileSHA1(localPath)
	if err != nil {
		return "", &TransportError{Err: err}
	}

	var uploadURLResp getUploadURLResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Authorization", auth.authorizationToken).
		SetBody(map[string]string{"bucketId": auth.bucketID}).
		SetResult(&uploadURLResp).
		Post(auth.apiURL + "/b2api/v2/b2_get_upload_url")
	if err != nil {
		return "", &TransportError{Err: err}
	}
	if resp.StatusCode() == 401 || resp.StatusCode() == 403 {
		return "", &AuthError{Err: fmt.Errorf("get_upload_url returned %d", resp.StatusCode())}
	}
	if resp.IsError() {
		return "", &TransportError{Err: fmt.Errorf("get_upload_url returned %d: %s", resp.StatusCode(), resp.String())}
	}

	encodedName := url.PathEscape(remotePath)

	resp, err = c.http.R().
		SetContext(ctx).
		SetHeader("Authorization", uploadURLResp.AuthorizationToken).
		SetHeader("X-Bz-File-Name", encodedName).
		SetHeader("Content-Type", "b2/x-auto").
		SetHeader("X-Bz-Content-Sha1", sha1Hex).
		SetHeader("Content-Length", fmt.Sprintf("%d", info.Size())).
		SetBody(f).
		Post(uploadURLResp.UploadURL)
	if err != nil {
		return "", &TransportError{Err: err}
	}
	if resp.StatusCode() == 401 || resp.StatusCode() == 403 {
		return "", &AuthError{Err: fmt.Errorf("upload returned %d", resp.StatusCode())}
	}
	if resp.IsError() {
		return "", &TransportError{Err: fmt.Errorf("upload returned %d: %s", resp.StatusCode(), resp.String())}
	}

	publicURL := fmt.Sprintf("https://%s/file/%s/%s", urlHost, c.bucketName, encodedName)
	return publicURL, nil
}

// TestConnection drops any cached authorization and verifies the credentials
// authorize successfully, without uploading anything.
func (c *Client) TestConnection(ctx context.Context) error {
	c.mu.Lock()
	c.auth = nil
	c.mu.Unlock()
	_, err := c.authorize()
	return err
}

func fileSHA1(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha1.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
