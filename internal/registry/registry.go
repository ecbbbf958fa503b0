// Package registry is a client for the external members registry used to
// enrich office-holder records. Only the two read endpoints the import
// pipeline needs are covered.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client calls the members registry HTTP API.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewClient creates a registry client. timeout bounds each request.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Member is one registry entry.
type Member struct {
	ID          int    `json:"id"`
	DisplayName string `json:"nameDisplayAs"`
	FullTitle   string `json:"nameFullTitle"`
	Gender      string `json:"gender"`
	Thumbnail   string `json:"thumbnailUrl"`
	Party       struct {
		Name string `json:"name"`
	} `json:"latestParty"`
	Membership struct {
		From string `json:"membershipFrom"`
	} `json:"latestHouseMembership"`
}

type memberEnvelope struct {
	Value Member `json:"value"`
}

type searchEnvelope struct {
	Items        []memberEnvelope `json:"items"`
	TotalResults int              `json:"totalResults"`
}

// GetMember fetches one member by its numeric registry identifier.
func (c *Client) GetMember(ctx context.Context, id int) (*Member, error) {
	u := fmt.Sprintf("%s/api/Members/%d", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling registry API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("member %d not found", id)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("registry API returned %d: %s", resp.StatusCode, string(body))
	}

	var envelope memberEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	c.logger.Debug("fetched member", "id", id, "name", envelope.Value.DisplayName)
	return &envelope.Value, nil
}

// Search finds members by free-text name match. skip and take are the
// registry's paging parameters; total is the full result count across pages.
func (c *Client) Search(ctx context.Context, name string, skip, take int) (members []Member, total int, err error) {
	params := url.Values{}
	params.Set("Name", name)
	params.Set("skip", strconv.Itoa(skip))
	params.Set("take", strconv.Itoa(take))

	u := c.baseURL + "/api/Members/Search?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("calling registry API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, 0, fmt.Errorf("registry API returned %d: %s", resp.StatusCode, string(body))
	}

	var envelope searchEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, 0, fmt.Errorf("decoding response: %w", err)
	}

	members = make([]Member, 0, len(envelope.Items))
	for _, item := range envelope.Items {
		members = append(members, item.Value)
	}

	c.logger.Debug("searched members", "name", name, "returned", len(members), "total", envelope.TotalResults)
	return members, envelope.TotalResults, nil
}
