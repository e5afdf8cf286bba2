package api

import (
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/shellfall/engine/v2/internal/config"
)

// Client downloads game pages and armor models through a disk cache keyed
// on the request. Pages rarely change, so cache hits skip the network
// entirely, remembered 404s included.
type Client struct {
	baseURL    string
	game       string
	cacheDir   string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a new game-data client. The cache directory is created if
// missing.
func New(cfg config.APIConfig, logger *slog.Logger) (*Client, error) {
	if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		game:       cfg.Game,
		cacheDir:   cfg.CacheDir,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}, nil
}

// VehicleURL returns the page URL for a vehicle or a country listing.
func (c *Client) VehicleURL(id string) string {
	return fmt.Sprintf("%s/games/%s/vehicles/%s", c.baseURL, c.game, id)
}

// VehiclePage fetches a vehicle or country listing page.
func (c *Client) VehiclePage(id string) (string, error) {
	return c.Get(c.VehicleURL(id))
}

// ArmorView fetches the rendered armor scheme for one hull, identified by
// its component params.
func (c *Client) ArmorView(vehicleID, params string) (string, error) {
	return c.PostView(c.VehicleURL(vehicleID), "armor", params)
}

// ArmorModel fetches one armor model file. An empty body means the model
// 404ed and should be skipped.
func (c *Client) ArmorModel(file string) (string, error) {
	return c.Get(fmt.Sprintf("%s/games/%s/data/current/armor/%s", c.baseURL, c.game, file))
}

// Get fetches a URL through the cache.
func (c *Client) Get(rawURL string) (string, error) {
	key := cacheKey(rawURL)
	if body, ok, err := c.cacheGet(key); err != nil {
		return "", err
	} else if ok {
		return body, nil
	}

	resp, err := c.httpClient.Get(rawURL)
	if err != nil {
		return "", fmt.Errorf("get %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	body, err := c.readBody(rawURL, resp)
	if err != nil {
		return "", err
	}
	if err := c.cachePut(key, body); err != nil {
		return "", err
	}
	return body, nil
}

// PostView fetches a rendered view of a page. The cache key covers the
// view name and its parameters, so different hulls don't collide.
func (c *Client) PostView(rawURL, view, params string) (string, error) {
	key := cacheKey(rawURL + view + params)
	if body, ok, err := c.cacheGet(key); err != nil {
		return "", err
	} else if ok {
		return body, nil
	}

	form := url.Values{}
	form.Set("view", view)
	form.Set("params", params)

	resp, err := c.httpClient.PostForm(rawURL, form)
	if err != nil {
		return "", fmt.Errorf("post %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	body, err := c.readBody(rawURL, resp)
	if err != nil {
		return "", err
	}
	if err := c.cachePut(key, body); err != nil {
		return "", err
	}
	return body, nil
}

// readBody drains a response, decompressing .gz payloads. A 404 becomes an
// empty body: some armor models are simply gone and must not fail a whole
// fleet fetch.
func (c *Client) readBody(rawURL string, resp *http.Response) (string, error) {
	if resp.StatusCode == http.StatusNotFound {
		c.logger.Warn("Got response code 404", "url", rawURL)
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("get %s: status %d", rawURL, resp.StatusCode)
	}

	var reader io.Reader = resp.Body
	if strings.HasSuffix(rawURL, ".gz") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return "", fmt.Errorf("decompress %s: %w", rawURL, err)
		}
		defer gz.Close()
		reader = gz
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", rawURL, err)
	}
	c.logger.Info("Downloaded", "url", rawURL, "bytes", len(body))
	return string(body), nil
}

func cacheKey(request string) string {
	sum := sha256.Sum256([]byte(request))
	return hex.EncodeToString(sum[:])
}

func (c *Client) cacheGet(key string) (string, bool, error) {
	body, err := os.ReadFile(filepath.Join(c.cacheDir, key))
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read cache: %w", err)
	}
	return string(body), true, nil
}

func (c *Client) cachePut(key, body string) error {
	if err := os.WriteFile(filepath.Join(c.cacheDir, key), []byte(body), 0o644); err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	return nil
}
