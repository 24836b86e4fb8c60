package jellyfin

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.mau.fi/util/random"
)

const (
	ClientName    = "jellympd"
	ClientVersion = "0.1.0"

	// RequestTimeout bounds every API call, including re-authentication
	RequestTimeout = 30 * time.Second
)

type Client struct {
	hostname *url.URL
	username string
	password string
	deviceID string
	device   string

	client *http.Client

	// PageSize is the number of items requested per page when listing
	PageSize int

	mu     sync.Mutex
	token  string
	userID string
}

func NewClient(hostname, username, password, deviceID string, verifyCert bool) (*Client, error) {
	client := &http.Client{Timeout: RequestTimeout}
	if !verifyCert {
		client.Transport = &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}}
	}

	u, err := url.Parse(hostname)
	if err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid server url %q: scheme must be http or https", hostname)
	}

	if deviceID == "" {
		deviceID = random.String(16)
	}
	device, err := os.Hostname()
	if err != nil || device == "" {
		device = ClientName
	}

	return &Client{
		hostname: u,
		username: username,
		password: password,
		deviceID: deviceID,
		device:   device,
		client:   client,
		PageSize: 1000,
	}, nil
}

// DeviceID returns the device id sent to the server
func (c *Client) DeviceID() string {
	return c.deviceID
}

// authorization builds the MediaBrowser authorization header
func (c *Client) authorization(token string) string {
	header := fmt.Sprintf(`MediaBrowser Client="%s", Device="%s", DeviceId="%s", Version="%s"`,
		ClientName, c.device, c.deviceID, ClientVersion)
	if token != "" {
		header += fmt.Sprintf(`, Token="%s"`, token)
	}
	return header
}

func (c *Client) session() (token, userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token, c.userID
}

// Authenticate logs in with the configured username and password
func (c *Client) Authenticate(ctx context.Context) error {
	body := map[string]string{
		"Username": c.username,
		"Pw":       c.password,
	}

	var result AuthenticationResult
	if err := c.doJSON(ctx, http.MethodPost, "/Users/AuthenticateByName", nil, body, "", &result); err != nil {
		return fmt.Errorf("failed to authenticate as %s: %w", c.username, err)
	}
	if result.AccessToken == "" || result.User.ID == "" {
		return errors.New("server returned an empty session")
	}

	c.mu.Lock()
	c.token = result.AccessToken
	c.userID = result.User.ID
	c.mu.Unlock()

	zerolog.Ctx(ctx).Info().Str("user", result.User.Name).Msg("Authenticated with Jellyfin")
	return nil
}

func (c *Client) ensureSession(ctx context.Context) (string, string, error) {
	token, userID := c.session()
	if token != "" {
		return token, userID, nil
	}
	if err := c.Authenticate(ctx); err != nil {
		return "", "", err
	}
	token, userID = c.session()
	return token, userID, nil
}

// getJSON performs an authenticated GET. The path may contain a {user}
// placeholder for the current user id. An expired session is renewed once.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	for attempt := 0; ; attempt++ {
		token, userID, err := c.ensureSession(ctx)
		if err != nil {
			return err
		}

		err = c.doJSON(ctx, http.MethodGet, strings.ReplaceAll(path, "{user}", userID), params, nil, token, out)
		if errors.Is(err, ErrUnauthorized) && attempt == 0 {
			c.mu.Lock()
			c.token = ""
			c.mu.Unlock()
			continue
		}
		return err
	}
}

func (c *Client) doJSON(ctx context.Context, method, path string, params url.Values, body any, token string, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	u := c.hostname.JoinPath(path)
	if params != nil {
		u.RawQuery = params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", c.authorization(token))
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &Error{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

// StreamURL returns the universal audio stream URL for an item
func (c *Client) StreamURL(itemID string) string {
	token, userID := c.session()

	params := url.Values{}
	params.Set("api_key", token)
	params.Set("UserId", userID)
	params.Set("DeviceId", c.deviceID)
	params.Set("Container", "opus,mp3,aac,m4a,flac,webma,webm,wav,ogg")

	u := c.hostname.JoinPath("Audio", itemID, "universal")
	u.RawQuery = params.Encode()
	return u.String()
}

// Resolve returns a playable stream URL for an item
func (c *Client) Resolve(ctx context.Context, itemID string) (string, error) {
	if _, _, err := c.ensureSession(ctx); err != nil {
		return "", err
	}
	return c.StreamURL(itemID), nil
}
