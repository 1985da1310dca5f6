// Package twitch resolves streaming-platform logins to numeric user IDs
// through the Helix API.
package twitch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/nicklaw5/helix/v2"
	waLog "go.mau.fi/whatsmeow/util/log"
)

const maxLoginsPerRequest = 100

var (
	ErrUnauthorized = errors.New("twitch rejected the app token")
	ErrTokenRequest = errors.New("twitch token request failed")
)

type Config struct {
	ClientID     string
	ClientSecret string
}

// User is the subset of a Helix user the directory keeps.
type User struct {
	ID              string `json:"id"`
	Login           string `json:"login"`
	DisplayName     string `json:"display_name"`
	ProfileImageURL string `json:"profile_image_url"`
}

// Client encapsula um cliente helix. As chamadas são serializadas porque o
// app token é definido no cliente compartilhado antes de cada requisição.
type Client struct {
	mu    sync.Mutex
	api   *helix.Client
	cache *TokenCache
	log   waLog.Logger
}

func NewClient(cfg Config, cache *TokenCache, httpClient *http.Client, log waLog.Logger) (*Client, error) {
	if cache == nil {
		cache = NewTokenCache(time.Minute)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if log == nil {
		log = waLog.Noop
	}
	api, err := helix.NewClient(&helix.Options{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		HTTPClient:   httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("twitch client: %w", err)
	}
	return &Client{api: api, cache: cache, log: log}, nil
}

// ResolveNumericID returns the numeric ID of login, or "" when no such user exists.
func (c *Client) ResolveNumericID(ctx context.Context, login string) (string, error) {
	ids, err := c.ResolveNumericIDs(ctx, []string{login})
	if err != nil {
		return "", err
	}
	return ids[strings.ToLower(strings.TrimSpace(login))], nil
}

// ResolveNumericIDs maps each known login (lowercase) to its numeric ID.
// Unknown logins are absent from the result.
func (c *Client) ResolveNumericIDs(ctx context.Context, logins []string) (map[string]string, error) {
	users, err := c.Users(ctx, logins)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(users))
	for _, u := range users {
		out[strings.ToLower(u.Login)] = u.ID
	}
	return out, nil
}

// Users consulta os logins em lotes de 100.
func (c *Client) Users(ctx context.Context, logins []string) ([]User, error) {
	clean := make([]string, 0, len(logins))
	seen := make(map[string]struct{}, len(logins))
	for _, l := range logins {
		l = strings.ToLower(strings.TrimSpace(l))
		if l == "" {
			continue
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		clean = append(clean, l)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	var out []User
	for start := 0; start < len(clean); start += maxLoginsPerRequest {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := start + maxLoginsPerRequest
		if end > len(clean) {
			end = len(clean)
		}
		batch, err := c.usersBatch(clean[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
	}
	return out, nil
}

func (c *Client) usersBatch(logins []string) ([]User, error) {
	users, err := c.getUsers(logins)
	if errors.Is(err, ErrUnauthorized) {
		c.log.Warnf("app token rejected, fetching a new one")
		c.cache.Invalidate()
		users, err = c.getUsers(logins)
	}
	return users, err
}

func (c *Client) getUsers(logins []string) ([]User, error) {
	if err := c.appToken(); err != nil {
		return nil, err
	}
	resp, err := c.api.GetUsers(&helix.UsersParams{Logins: logins})
	if err != nil {
		return nil, fmt.Errorf("helix users: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, ErrUnauthorized
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("helix users returned status %d: %s", resp.StatusCode, resp.ErrorMessage)
	}

	out := make([]User, 0, len(resp.Data.Users))
	for _, u := range resp.Data.Users {
		out = append(out, User{ID: u.ID, Login: u.Login, DisplayName: u.DisplayName, ProfileImageURL: u.ProfileImageURL})
	}
	return out, nil
}

// appToken instala um app access token válido no cliente helix, pedindo um
// novo à Twitch quando o cache está vazio.
func (c *Client) appToken() error {
	if token, ok := c.cache.Get(); ok {
		c.api.SetAppAccessToken(token)
		return nil
	}

	resp, err := c.api.RequestAppAccessToken(nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTokenRequest, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrTokenRequest, resp.StatusCode)
	}
	if resp.Data.AccessToken == "" {
		return fmt.Errorf("%w: empty access token", ErrTokenRequest)
	}
	c.cache.Set(resp.Data.AccessToken, time.Duration(resp.Data.ExpiresIn)*time.Second)
	c.api.SetAppAccessToken(resp.Data.AccessToken)
	c.log.Debugf("app token refreshed, expires in %ds", resp.Data.ExpiresIn)
	return nil
}
