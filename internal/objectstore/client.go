// Package objectstore is the HTTP client for the cloud object store: a
// Backblaze B2-style two-call flow (authorize, then get-upload-url/upload)
// with the authorization response cached and invalidated on the next
// auth-shaped failure.
package objectstore

import (
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	authorizeURL  = "https://api.backblazeb2.com/b2api/v2/b2_authorize_account"
	requestTimeout = 30 * time.Second
)

// Client uploads local files to a B2 bucket over HTTP.
type Client struct {
	keyID          string
	applicationKey string
	bucketName     string

	http *resty.Client

	mu   sync.Mutex
	auth *authorization
}

type authorization struct {
	apiURL             string
	downloadURL        string
	authorizationToken string
	bucketID           string
}

// New constructs a Client. The bucket ID is resolved lazily on first
// authorize, since it requires an authenticated list-buckets call.
func New(keyID, applicationKey, bucketName string) *Client {
	return &Client{
		keyID:          keyID,
		applicationKey: applicationKey,
		bucketName:     bucketName,
		http:           resty.New().SetTimeout(requestTimeout),
	}
}

// AuthError means the object store rejected the credentials outright.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string { return fmt.Sprintf("object store auth failed: %v", e.Err) }
func (e *AuthError) Unwrap() error { return e.Err }

// TransportError means the request failed for a reason other than
// authorization (network error, non-2xx response body, etc).
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("object store transport failed: %v", e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

type authorizeResponse struct {
	APIURL             string `json:"apiUrl"`
	DownloadURL        string `json:"downloadUrl"`
	AuthorizationToken string `json:"authorizationToken"`
}

type listBucketsResponse struct {
	Buckets []struct {
		BucketID   string `json:"bucketId"`
		BucketName string `json:"bucketName"`
	} `json:"buckets"`
}

// authorize performs the account-authorize call and resolves the bucket ID,
// caching the result until invalidated.
func (c *Client) authorize() (*authorization, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.auth != nil {
		return c.auth, nil
	}

	creds := base64.StdEncoding.EncodeToString([]byte(c.keyID + ":" + c.applicationKey))

	var authResp authorizeResponse
	resp, err := c.http.R().
		SetHeader("Authorization", "Basic "+creds).
		SetResult(&authResp).
		Get(authorizeURL)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	if resp.StatusCode() == 401 || resp.StatusCode() == 403 {
		return nil, &AuthError{Err: fmt.Errorf("authorize returned %d", resp.StatusCode())}
	}
	if resp.IsError() {
		return nil, &TransportError{Err: fmt.Errorf("authorize returned %d: %s", resp.StatusCode(), resp.String())}
	}

	var buckets listBucketsResponse
	resp, err = c.http.R().
		SetHeader("Authorization", authResp.AuthorizationToken).
		SetBody(map[string]string{"bucketName": c.bucketName}).
		SetResult(&buckets).
		Post(authResp.APIURL + "/b2api/v2/b2_list_buckets")
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	if resp.StatusCode() == 401 || resp.StatusCode() == 403 {
		return nil, &AuthError{Err: fmt.Errorf("list buckets returned %d", resp.StatusCode())}
	}
	if resp.IsError() || len(buckets.Buckets) == 0 {
		return nil, &TransportError{Err: fmt.Errorf("bucket %q not found", c.bucketName)}
	}

	auth := &authorization{
		apiURL:             authResp.APIURL,
		downloadURL:        authResp.DownloadURL,
		authorizationToken: authResp.AuthorizationToken,
		bucketID:           buckets.Buckets[0].BucketID,
	}
	c.auth = auth
	return auth, nil
}

// invalidate drops the cached authorization so the next call re-authorizes.
func (c *Client) invalidate() {
	c.mu.Lock()
	c.auth = nil
	c.mu.Unlock()
}

type getUploadURLResponse struct {
	UploadURL          string `json:"uploadUrl"`
	AuthorizationToken string `json:"authorizationToken"`
}
