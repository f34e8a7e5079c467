package hook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"ecavalidator/internal/domain"
)

// ErrRejected is returned by Client.Validate when the service answered 403.
// The decoded response is returned alongside it.
var ErrRejected = errors.New("push rejected")

type CommitStatus struct {
	Hash    string         `json:"hash"`
	Verdict domain.Verdict `json:"verdict"`
	Reason  string         `json:"reason"`
}

type Response struct {
	Passed       bool           `json:"passed"`
	ErrorCount   int            `json:"errorCount"`
	WarningCount int            `json:"warningCount"`
	Commits      []CommitStatus `json:"commits"`
}

// Client posts pushes to the validation service.
type Client struct {
	endpoint string
	http     *http.Client
}

func NewClient(endpoint string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{endpoint: endpoint, http: httpClient}
}

func (c *Client) Validate(ctx context.Context, req domain.ValidationRequest) (Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return Response{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json; charset=utf-8")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("post %s: %w", c.endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return Response{}, fmt.Errorf("read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusForbidden:
	default:
		return Response{}, fmt.Errorf("validation service returned %s: %s", resp.Status, bytes.TrimSpace(body))
	}

	var out Response
	if err := json.Unmarshal(body, &out); err != nil {
		return Response{}, fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode == http.StatusForbidden {
		return out, ErrRejected
	}
	return out, nil
}
