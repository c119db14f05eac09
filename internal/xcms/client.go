package xcms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Ref is a camera's external reference: the backend host and the camera id
// the backend assigned. The authorization engine treats both as opaque.
type Ref struct {
	Host     string
	CameraID string
}

// URLSet holds the access URLs the backend exposes for one camera.
type URLSet struct {
	RTSP     string `json:"rtsp"`
	HTTP     string `json:"http"`
	HLS      string `json:"hls"`
	Snapshot string `json:"snapshot"`
	Playback string `json:"playback"`
}

// Event is one AI detection event reported by the backend.
type Event struct {
	ID         int64     `json:"id"`
	CameraID   string    `json:"camera_id"`
	CameraName string    `json:"camera_name"`
	Type       string    `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	Confidence float64   `json:"confidence"`
	Snapshot   string    `json:"snapshot,omitempty"`
	Video      string    `json:"video,omitempty"`
}

// EventQuery narrows an event listing.
type EventQuery struct {
	EventType string
	Start     *time.Time
	End       *time.Time
	Limit     int
}

// Config holds backend connection settings.
type Config struct {
	DefaultHost string
	APIPort     int
	MediaPort   int
	RTSPPort    int
	APIKey      string
	Timeout     time.Duration
}

// Client talks to the XCMS video backend. It supplies URLs and detection
// events for cameras whose access has already been authorized; it plays no
// part in the authorization decision itself.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient constructs a backend client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.DefaultHost == "" {
		return nil, errors.New("xcms: default host is required")
	}
	if cfg.APIPort == 0 {
		cfg.APIPort = 9001
	}
	if cfg.MediaPort == 0 {
		cfg.MediaPort = 9002
	}
	if cfg.RTSPPort == 0 {
		cfg.RTSPPort = 9554
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// StreamURLs builds the access URL set for the referenced camera. No network
// call is involved; the backend serves these paths by convention.
func (c *Client) StreamURLs(ref Ref) URLSet {
	host := c.host(ref)
	return URLSet{
		RTSP:     fmt.Sprintf("rtsp://%s:%d/stream/%s", host, c.cfg.RTSPPort, ref.CameraID),
		HTTP:     fmt.Sprintf("http://%s:%d/stream/%s", host, c.cfg.MediaPort, ref.CameraID),
		HLS:      fmt.Sprintf("http://%s:%d/stream/%s.m3u8", host, c.cfg.MediaPort, ref.CameraID),
		Snapshot: fmt.Sprintf("http://%s:%d/snapshot/%s.jpg", host, c.cfg.MediaPort, ref.CameraID),
		Playback: fmt.Sprintf("http://%s:%d/playback/%s", host, c.cfg.MediaPort, ref.CameraID),
	}
}

// RecentEvents fetches detection events for the referenced camera.
func (c *Client) RecentEvents(ctx context.Context, ref Ref, query EventQuery) ([]Event, error) {
	params := url.Values{}
	params.Set("camera_id", ref.CameraID)
	if query.EventType != "" {
		params.Set("event_type", query.EventType)
	}
	if query.Start != nil {
		params.Set("start_time", query.Start.UTC().Format(time.RFC3339))
	}
	if query.End != nil {
		params.Set("end_time", query.End.UTC().Format(time.RFC3339))
	}
	if query.Limit > 0 {
		params.Set("limit", strconv.Itoa(query.Limit))
	}

	endpoint := fmt.Sprintf("http://%s:%d/api/v1/events?%s", c.host(ref), c.cfg.APIPort, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("xcms: build request: %w", err)
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("xcms: fetch events: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("xcms: events endpoint returned status %d", resp.StatusCode)
	}

	var payload struct {
		Events []Event `json:"events"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("xcms: decode events: %w", err)
	}
	return payload.Events, nil
}

func (c *Client) host(ref Ref) string {
	if ref.Host != "" {
		return ref.Host
	}
	return c.cfg.DefaultHost
}

func (c *Client) authorize(req *http.Request) {
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	req.Header.Set("Accept", "application/json")
}
