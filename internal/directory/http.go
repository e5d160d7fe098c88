package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/suPer8Hu/im-archive/internal/archive"
)

// HTTPResolver resolves display names against the chat server's user REST
// endpoint: GET {base}/users/{bare} -> {"display_name": "..."}.
type HTTPResolver struct {
	BaseURL string
	Client  *http.Client
}

var _ archive.NameResolver = (*HTTPResolver)(nil)

func NewHTTPResolver(baseURL string) *HTTPResolver {
	if baseURL == "" {
		baseURL = "http://localhost:9090"
	}
	return &HTTPResolver{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 5 * time.Second},
	}
}

type userResp struct {
	DisplayName string `json:"display_name"`
	Error       string `json:"error,omitempty"`
}

func (r *HTTPResolver) DisplayName(ctx context.Context, user archive.Address) (string, error) {
	if r.Client == nil {
		return "", errors.New("directory: http client is nil")
	}

	u := fmt.Sprintf("%s/users/%s", r.BaseURL, url.PathEscape(user.Bare))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("%w: user %s", archive.ErrNotFound, user.Bare)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("directory: status %d", resp.StatusCode)
	}

	var decoded userResp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", err
	}
	if decoded.Error != "" {
		return "", errors.New(decoded.Error)
	}
	if decoded.DisplayName == "" {
		return "", fmt.Errorf("%w: user %s", archive.ErrNotFound, user.Bare)
	}
	return decoded.DisplayName, nil
}
