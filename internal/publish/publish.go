// Package publish pushes committed schedule records to the downstream
// publishing service's Admin API.
package publish

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ai-post-scheduler/internal/config"
	"ai-post-scheduler/internal/records"

	"github.com/golang-jwt/jwt/v5"
)

// ScheduledPost is the Admin API's representation of one queued post.
type ScheduledPost struct {
	ID          string `json:"id,omitempty"`
	Platform    string `json:"platform"`
	ScheduledAt string `json:"scheduled_at"` // "YYYY-MM-DD HH:MM" in the business timezone
	Caption     string `json:"caption"`
	ImageURL    string `json:"image_url,omitempty"`
	Status      string `json:"status"`
}

// postsResponse is the top-level structure of the Admin API response.
type postsResponse struct {
	Posts []ScheduledPost `json:"posts"`
}

// Client is an interface for the publishing Admin API.
type Client interface {
	SchedulePost(rec records.Record) (*ScheduledPost, error)
}

// apiClient is the concrete implementation of the publishing API client.
type apiClient struct {
	httpClient *http.Client
	config     *config.Config
}

// NewClient creates a new publishing API client.
func NewClient(cfg *config.Config) Client {
	return &apiClient{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		config:     cfg,
	}
}

// SchedulePost queues one record with the downstream service.
func (c *apiClient) SchedulePost(rec records.Record) (*ScheduledPost, error) {
	token, err := c.createAdminToken()
	if err != nil {
		return nil, fmt.Errorf("failed to create admin token: %w", err)
	}

	caption := rec.Caption
	if caption == "" {
		caption = rec.Body
	}

	payload := map[string]interface{}{
		"posts": []ScheduledPost{
			{
				Platform:    rec.Platform,
				ScheduledAt: rec.Date.Format("2006-01-02") + " " + rec.PostingTime,
				Caption:     caption,
				ImageURL:    rec.ImageURL,
				Status:      "scheduled",
			},
		},
	}

	body, _ := json.Marshal(payload)
	url := fmt.Sprintf("%s/api/admin/posts/", strings.TrimRight(c.config.PublishAPIURL, "/"))

	req, err := http.NewRequest("POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		var errResp interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		return nil, fmt.Errorf("admin api error: status %d, body: %v", resp.StatusCode, errResp)
	}

	var response postsResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, err
	}

	if len(response.Posts) == 0 {
		return nil, fmt.Errorf("no post returned from api")
	}

	return &response.Posts[0], nil
}

// createAdminToken generates a short-lived JWT for the Admin API.
func (c *apiClient) createAdminToken() (string, error) {
	keyParts := strings.Split(c.config.PublishAdminKey, ":")
	if len(keyParts) != 2 {
		return "", fmt.Errorf("invalid admin key format: expected id:secret")
	}

	id := keyParts[0]
	secretHex := keyParts[1]

	secret, err := hex.DecodeString(secretHex)
	if err != nil {
		return "", fmt.Errorf("failed to decode secret hex: %w", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(5 * time.Minute).Unix(),
		"aud": "/admin/",
	})
	token.Header["kid"] = id

	return token.SignedString(secret)
}
