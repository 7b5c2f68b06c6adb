// Package gdrive uploads and lists files through the Google Drive v3 API.
package gdrive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/gazolla/cafeflow/internal/protect"
	"github.com/gazolla/cafeflow/internal/transport"
)

// ServiceName identifies Google Drive in logs and errors.
const ServiceName = "gdrive"

const (
	defaultBaseURL   = "https://www.googleapis.com/drive/v3"
	defaultUploadURL = "https://www.googleapis.com/upload/drive/v3/files"
	defaultTokenURL  = "https://oauth2.googleapis.com/token"
	driveFileScope   = "https://www.googleapis.com/auth/drive.file"
	fileFields       = "id,name,mimeType,webViewLink,modifiedTime,size"
	maxPageSize      = 1000
)

// Config configures the Drive client with an installed-app OAuth client and
// a long-lived refresh token.
type Config struct {
	ClientID     string
	ClientSecret string
	RefreshToken string

	// BaseURL defaults to https://www.googleapis.com/drive/v3.
	BaseURL string

	// UploadURL defaults to https://www.googleapis.com/upload/drive/v3/files.
	UploadURL string

	// TokenURL defaults to Google's OAuth2 token endpoint.
	TokenURL string

	// HTTPClient is the base client for API and token refresh calls.
	HTTPClient *http.Client
}

// Upload describes a file to create.
type Upload struct {
	Name     string
	MimeType string
	Content  []byte

	// FolderID places the file in a folder. Empty means My Drive root.
	FolderID string
}

// File is Drive file metadata.
type File struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	MimeType     string    `json:"mimeType"`
	WebViewLink  string    `json:"webViewLink,omitempty"`
	ModifiedTime time.Time `json:"modifiedTime,omitempty"`
	Size         string    `json:"size,omitempty"`
}

// Client talks to the Drive API. Access tokens are refreshed on demand.
type Client struct {
	exec         *protect.Executor
	transport    transport.Transport
	uploadURL    string
	hasRefresher bool
}

// New creates a Drive client.
func New(cfg Config, exec *protect.Executor) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.UploadURL == "" {
		cfg.UploadURL = defaultUploadURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}

	ctx := context.Background()
	if cfg.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, cfg.HTTPClient)
	}
	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  cfg.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
		Scopes: []string{driveFileScope},
	}
	httpClient := oauth2.NewClient(ctx, oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken}))
	httpClient.Timeout = 60 * time.Second

	t, err := transport.NewHTTPTransport(&transport.HTTPConfig{
		BaseURL: cfg.BaseURL,
		Client:  httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("gdrive: %w", err)
	}
	return &Client{
		exec:         exec,
		transport:    t,
		uploadURL:    cfg.UploadURL,
		hasRefresher: cfg.RefreshToken != "",
	}, nil
}

// UploadFile creates a file with a single multipart upload request.
func (c *Client) UploadFile(ctx context.Context, up Upload) (*File, error) {
	return protect.RunValue(ctx, c.exec, ServiceName, "uploadFile", func(ctx context.Context) (*File, error) {
		if err := c.checkCredentials(); err != nil {
			return nil, err
		}
		if strings.TrimSpace(up.Name) == "" {
			return nil, transport.InvalidRequest("file name is required")
		}
		if up.MimeType == "" {
			up.MimeType = "application/octet-stream"
		}

		body, contentType, err := multipartBody(up)
		if err != nil {
			return nil, err
		}

		params := url.Values{}
		params.Set("uploadType", "multipart")
		params.Set("fields", fileFields)
		resp, err := c.transport.Execute(ctx, &transport.Request{
			Method:  http.MethodPost,
			URL:     c.uploadURL + "?" + params.Encode(),
			Headers: map[string]string{"Content-Type": contentType},
			Body:    body,
		})
		if err != nil {
			return nil, parseError(err)
		}

		var file File
		if err := transport.DecodeJSON(resp, &file); err != nil {
			return nil, err
		}
		return &file, nil
	})
}

// ListFiles returns files matching a Drive search query (for example
// "name contains 'digest'"). An empty query lists recent files.
func (c *Client) ListFiles(ctx context.Context, query string, pageSize int) ([]File, error) {
	return protect.RunValue(ctx, c.exec, ServiceName, "listFiles", func(ctx context.Context) ([]File, error) {
		if err := c.checkCredentials(); err != nil {
			return nil, err
		}
		if pageSize <= 0 {
			pageSize = 20
		}
		pageSize = min(pageSize, maxPageSize)

		params := url.Values{}
		if query != "" {
			params.Set("q", query)
		}
		params.Set("pageSize", strconv.Itoa(pageSize))
		params.Set("orderBy", "modifiedTime desc")
		params.Set("fields", "files("+fileFields+")")

		resp, err := c.transport.Execute(ctx, &transport.Request{
			Method:  http.MethodGet,
			URL:     "/files?" + params.Encode(),
			Headers: map[string]string{"Accept": "application/json"},
		})
		if err != nil {
			return nil, parseError(err)
		}

		var out struct {
			Files []File `json:"files"`
		}
		if err := transport.DecodeJSON(resp, &out); err != nil {
			return nil, err
		}
		return out.Files, nil
	})
}

func (c *Client) checkCredentials() error {
	if !c.hasRefresher {
		return &transport.TransportError{
			Type:    transport.ErrorTypeAuth,
			Message: "GOOGLE_DRIVE_REFRESH_TOKEN is not set",
		}
	}
	return nil
}

// multipartBody encodes metadata and media as a multipart/related body.
func multipartBody(up Upload) ([]byte, string, error) {
	meta := map[string]interface{}{"name": up.Name, "mimeType": up.MimeType}
	if up.FolderID != "" {
		meta["parents"] = []string{up.FolderID}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, "", fmt.Errorf("encode file metadata: %w", err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {"application/json; charset=UTF-8"}})
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(metaJSON); err != nil {
		return nil, "", err
	}

	part, err = mw.CreatePart(textproto.MIMEHeader{"Content-Type": {up.MimeType}})
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(up.Content); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}

	return buf.Bytes(), "multipart/related; boundary=" + mw.Boundary(), nil
}
