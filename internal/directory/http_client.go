package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"messaging-service/internal/chaterr"
)

// HTTPClient talks to the user-directory service over its internal JSON API.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient constructs a directory client.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

// GetUser fetches a single user.
func (c *HTTPClient) GetUser(ctx context.Context, userID int64) (User, error) {
	var user User
	if err := c.get(ctx, fmt.Sprintf("/internal/users/%d", userID), &user); err != nil {
		return User{}, err
	}
	return user, nil
}

// BulkUsers fetches multiple users in one call.
func (c *HTTPClient) BulkUsers(ctx context.Context, ids []int64) ([]User, error) {
	if len(ids) == 0 {
		return []User{}, nil
	}
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.FormatInt(id, 10))
	}

	var resp struct {
		Users []User `json:"users"`
	}
	path := "/internal/users?ids=" + url.QueryEscape(strings.Join(parts, ","))
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

// GetCompany fetches a company's business profile.
func (c *HTTPClient) GetCompany(ctx context.Context, companyID int64) (Company, error) {
	var company Company
	if err := c.get(ctx, fmt.Sprintf("/internal/companies/%d", companyID), &company); err != nil {
		return Company{}, err
	}
	return company, nil
}

func (c *HTTPClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("directory request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return chaterr.ErrUserNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("directory status %d for %s", resp.StatusCode, path)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

var _ Directory = (*HTTPClient)(nil)
