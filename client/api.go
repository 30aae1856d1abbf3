// Package client holds the client half of the scheduler: the HTTP API
// wrapper, the sync session that reconciles server snapshots with local
// edits, the last-week template store, and local preferences.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aryeetea/SyncSpaceScheduling/models"
)

const defaultRequestTimeout = 10 * time.Second

// API talks to the group server. All calls send the shared bearer token
// and surface any failure (transport, timeout, non-2xx) as a single error.
type API struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewAPI(baseURL, token string) *API {
	return &API{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: defaultRequestTimeout},
	}
}

// GroupResult is what create and join hand back: the group record and the
// caller's freshly assigned member id.
type GroupResult struct {
	Group    models.Group `json:"group"`
	MemberID string       `json:"memberId"`
}

// Snapshot is one full fetch of a group: metadata plus every member with
// availability.
type Snapshot struct {
	Group   models.Group    `json:"group"`
	Members []models.Member `json:"members"`
}

func (a *API) CreateGroup(ctx context.Context, groupName, userName, code string) (*GroupResult, error) {
	var result GroupResult
	err := a.do(ctx, http.MethodPost, "/groups", map[string]string{
		"groupName": groupName,
		"userName":  userName,
		"code":      code,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (a *API) JoinGroup(ctx context.Context, code, userName string) (*GroupResult, error) {
	var result GroupResult
	err := a.do(ctx, http.MethodPost, "/groups/"+code+"/join", map[string]string{
		"userName": userName,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (a *API) FetchGroup(ctx context.Context, code string) (*Snapshot, error) {
	var snap Snapshot
	if err := a.do(ctx, http.MethodGet, "/groups/"+code, nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (a *API) SaveAvailability(ctx context.Context, code, memberID string, availability []models.DayAvailability) error {
	return a.do(ctx, http.MethodPut, "/groups/"+code+"/availability", map[string]any{
		"memberId":     memberID,
		"availability": availability,
	}, nil)
}

type apiError struct {
	Kind    string `json:"error"`
	Message string `json:"message"`
}

func (a *API) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr apiError
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("%s %s: %s", method, path, apiErr.Message)
		}
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
