package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"quickrev/internal/domain"
)

const (
	viewPath   = "/cloud/file/view"
	listPath   = "/cloud/file/list"
	deletePath = "/cloud/file/delete"
)

// maxPayload caps how much of a response body is read.
const maxPayload = 8 << 20

// Client talks to the QuickRev REST backend: flashcard files and the
// per-user file library.
type Client struct {
	endpoint string
	http     *http.Client
	maxBody  int64
}

func NewClient(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		http:     &http.Client{Timeout: timeout},
		maxBody:  maxPayload,
	}
}

// LoadRecords issues GET {endpoint}/cloud/file/view?file_id=... and parses
// the body into records. The request is idempotent and safe to retry.
func (c *Client) LoadRecords(ctx context.Context, fileID string) ([]domain.QuestionRecord, error) {
	if fileID == "" {
		return nil, fmt.Errorf("%w: no file id provided", domain.ErrNotFound)
	}

	params := url.Values{}
	params.Set("file_id", fileID)
	body, err := c.do(ctx, http.MethodGet, viewPath, params)
	if err != nil {
		return nil, err
	}
	return domain.ParseRecords(body)
}

type listResponse struct {
	Success bool                 `json:"success"`
	Files   []domain.FileSummary `json:"files"`
	Detail  string               `json:"detail"`
}

// ListFiles returns userID's files of the given type, newest first.
func (c *Client) ListFiles(ctx context.Context, userID, fileType string) ([]domain.FileSummary, error) {
	if userID == "" {
		return nil, domain.ErrUnauthenticated
	}

	params := url.Values{}
	params.Set("user_id", userID)
	params.Set("type", fileType)
	body, err := c.do(ctx, http.MethodGet, listPath, params)
	if err != nil {
		return nil, err
	}

	var resp listResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: file list: %v", domain.ErrFormat, err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("%w: file list rejected: %s", domain.ErrNetwork, resp.Detail)
	}
	files := resp.Files
	if files == nil {
		files = []domain.FileSummary{}
	}
	domain.SortFiles(files)
	return files, nil
}

// DeleteFile removes fileID from userID's library.
func (c *Client) DeleteFile(ctx context.Context, userID, fileID string) error {
	if userID == "" {
		return domain.ErrUnauthenticated
	}
	if fileID == "" {
		return fmt.Errorf("%w: no file id provided", domain.ErrNotFound)
	}

	params := url.Values{}
	params.Set("user_id", userID)
	params.Set("file_id", fileID)
	_, err := c.do(ctx, http.MethodDelete, deletePath, params)
	return err
}

// do sends the request and returns the body of a 2xx response. 404 maps to
// ErrNotFound, other failures to ErrNetwork.
func (c *Client) do(ctx context.Context, method, path string, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", domain.ErrNetwork, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s?%s", domain.ErrNotFound, path, params.Encode())
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("%w: backend returned %s", domain.ErrNetwork, resp.Status)
	}
	return c.readBody(resp.Body)
}

func (c *Client) readBody(r io.Reader) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, c.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrNetwork, err)
	}
	if int64(len(body)) > c.maxBody {
		return nil, fmt.Errorf("%w: %w: over %d bytes", domain.ErrFormat, domain.ErrPayloadTooLarge, c.maxBody)
	}
	return body, nil
}
