// client/client.go
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"keeper/internal/config"
	shared "keeper/shared/types"
)

// Client talks to a running keeper daemon.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: time.Second * 30,
		},
	}
}

// TriggerOutcome mirrors the daemon's trigger response.
type TriggerOutcome struct {
	Scheduled bool                   `json:"scheduled"`
	Skipped   bool                   `json:"skipped,omitempty"`
	Result    *shared.PipelineResult `json:"result,omitempty"`
}

func (c *Client) RegisterProject(id, rootPath string) (*shared.Project, error) {
	body := map[string]string{"id": id, "root_path": rootPath}
	var project shared.Project
	if err := c.do(http.MethodPost, "/api/projects", body, &project, http.StatusCreated); err != nil {
		return nil, err
	}
	return &project, nil
}

func (c *Client) ListProjects() ([]shared.Project, error) {
	var projects []shared.Project
	if err := c.do(http.MethodGet, "/api/projects", nil, &projects, http.StatusOK); err != nil {
		return nil, err
	}
	return projects, nil
}

func (c *Client) ProjectStatus(projectID string) (*shared.ProjectStatus, error) {
	var status shared.ProjectStatus
	path := fmt.Sprintf("/api/projects/%s/status", projectID)
	if err := c.do(http.MethodGet, path, nil, &status, http.StatusOK); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) Trigger(projectID, kind, toolName, summary string) (*TriggerOutcome, error) {
	body := map[string]string{
		"kind":      kind,
		"tool_name": toolName,
		"summary":   summary,
	}
	path := fmt.Sprintf("/api/projects/%s/trigger", projectID)

	var outcome TriggerOutcome
	if err := c.do(http.MethodPost, path, body, &outcome, http.StatusOK, http.StatusAccepted); err != nil {
		return nil, err
	}
	return &outcome, nil
}

func (c *Client) ListCommits(projectID string, limit int) ([]shared.CommitRecord, error) {
	path := fmt.Sprintf("/api/projects/%s/commits?limit=%d", projectID, limit)
	var records []shared.CommitRecord
	if err := c.do(http.MethodGet, path, nil, &records, http.StatusOK); err != nil {
		return nil, err
	}
	return records, nil
}

func (c *Client) GetConfig() (*config.AutoCommitConfig, error) {
	var cfg config.AutoCommitConfig
	if err := c.do(http.MethodGet, "/api/autocommit/config", nil, &cfg, http.StatusOK); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Client) UpdateConfig(update config.AutoCommitUpdate) (*config.AutoCommitConfig, error) {
	var cfg config.AutoCommitConfig
	if err := c.doPatch("/api/autocommit/config", update, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Client) do(method, path string, body, out any, okStatuses ...int) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}

	req, err := http.NewRequest(method, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	ok := false
	for _, status := range okStatuses {
		if resp.StatusCode == status {
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) doPatch(path string, body, out any) error {
	return c.do(http.MethodPatch, path, body, out, http.StatusOK)
}
