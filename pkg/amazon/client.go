package amazon

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	defaultDriveURL   = "https://www.amazon.com/drive/v1"
	defaultContentURL = "https://content-na.drive.amazonaws.com/cdproxy"

	// SearchLimit caps every search regardless of the requested maximum.
	SearchLimit = 200
)

// Client talks to the Amazon Drive/Photos API using cookie authentication.
type Client struct {
	driveURL    string
	contentURL  string
	cookies     map[string]string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
}

// NewClient creates a client against the production Amazon endpoints.
// The cookie set should already be normalized.
func NewClient(cookies map[string]string, timeout time.Duration) *Client {
	return NewClientWithURLs(defaultDriveURL, defaultContentURL, cookies, timeout)
}

// NewClientWithURLs creates a client against explicit drive and content
// endpoints. Used directly by tests.
func NewClientWithURLs(driveURL, contentURL string, cookies map[string]string, timeout time.Duration) *Client {
	return &Client{
		driveURL:   strings.TrimRight(driveURL, "/"),
		contentURL: strings.TrimRight(contentURL, "/"),
		cookies:    cookies,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:    10,
				MaxConnsPerHost: 10,
				IdleConnTimeout: 90 * time.Second,
			},
		},
		rateLimiter: rate.NewLimiter(rate.Every(10*time.Millisecond), 100), // 100 req/sec
	}
}

// Usage returns the account storage usage summary.
func (c *Client) Usage(ctx context.Context) (*Usage, error) {
	endpoint := fmt.Sprintf("%s/account/usage", c.driveURL)

	var usage Usage
	if err := c.get(ctx, endpoint, &usage); err != nil {
		return nil, err
	}

	return &usage, nil
}

// Search runs a filter-grammar query against the library, e.g.
// "type:(PHOTOS) timeYear:(2024)" or "things:(beach AND sunset)".
func (c *Client) Search(ctx context.Context, filters string, limit, offset int) ([]Node, error) {
	if limit <= 0 || limit > SearchLimit {
		limit = SearchLimit
	}

	query := url.Values{}
	query.Set("asset", "ALL")
	query.Set("searchContext", "customer")
	query.Set("tempLink", "false")
	if filters != "" {
		query.Set("filters", filters)
	}
	query.Set("limit", fmt.Sprintf("%d", limit))
	query.Set("offset", fmt.Sprintf("%d", offset))

	fullURL := fmt.Sprintf("%s/search?%s", c.driveURL, query.Encode())

	var results searchResponse
	if err := c.get(ctx, fullURL, &results); err != nil {
		return nil, err
	}

	return results.Data, nil
}

// Photos returns recent photos.
func (c *Client) Photos(ctx context.Context, limit int) ([]Node, error) {
	return c.Search(ctx, "type:(PHOTOS)", limit, 0)
}

// Videos returns recent videos.
func (c *Client) Videos(ctx context.Context, limit int) ([]Node, error) {
	return c.Search(ctx, "type:(VIDEOS)", limit, 0)
}

// Aggregations returns the service's precomputed library summaries. Category
// "all" returns every aggregation; a specific category ("allPeople",
// "things", "location", "time", "type") returns just that one.
func (c *Client) Aggregations(ctx context.Context, category string) (map[string][]AggregationEntry, error) {
	query := url.Values{}
	query.Set("asset", "ALL")
	query.Set("searchContext", "customer")
	query.Set("limit", "1")
	if category == "" || category == "all" {
		query.Set("groupByForTime", "year")
	} else {
		query.Set("aggregations", category)
	}

	fullURL := fmt.Sprintf("%s/search?%s", c.driveURL, query.Encode())

	var resp aggregationsResponse
	if err := c.get(ctx, fullURL, &resp); err != nil {
		return nil, err
	}

	return resp.Aggregations, nil
}

// People returns the allPeople aggregation: one entry per face cluster.
func (c *Client) People(ctx context.Context) ([]AggregationEntry, error) {
	aggs, err := c.Aggregations(ctx, "allPeople")
	if err != nil {
		return nil, err
	}
	return aggs["allPeople"], nil
}

// Folders lists every FOLDER node in the library.
func (c *Client) Folders(ctx context.Context) ([]Node, error) {
	query := url.Values{}
	query.Set("filters", "kind:(FOLDER)")
	query.Set("limit", fmt.Sprintf("%d", SearchLimit))

	fullURL := fmt.Sprintf("%s/nodes?%s", c.driveURL, query.Encode())

	var results searchResponse
	if err := c.get(ctx, fullURL, &results); err != nil {
		return nil, err
	}

	return results.Data, nil
}

// FolderTree renders the folder hierarchy as indented text.
func (c *Client) FolderTree(ctx context.Context) (string, error) {
	folders, err := c.Folders(ctx)
	if err != nil {
		return "", err
	}
	return renderFolderTree(folders), nil
}

// Trash moves the given nodes to the trash.
func (c *Client) Trash(ctx context.Context, nodeIDs []string) error {
	endpoint := fmt.Sprintf("%s/trash", c.driveURL)

	body := map[string]interface{}{
		"op":      "add",
		"ids":     nodeIDs,
		"recurse": "true",
	}

	return c.patch(ctx, endpoint, body, nil)
}

// Restore moves the given nodes out of the trash.
func (c *Client) Restore(ctx context.Context, nodeIDs []string) error {
	endpoint := fmt.Sprintf("%s/trash", c.driveURL)

	body := map[string]interface{}{
		"op":  "remove",
		"ids": nodeIDs,
	}

	return c.patch(ctx, endpoint, body, nil)
}

// Trashed lists nodes currently in the trash.
func (c *Client) Trashed(ctx context.Context, limit int) ([]Node, error) {
	if limit <= 0 || limit > SearchLimit {
		limit = SearchLimit
	}

	fullURL := fmt.Sprintf("%s/trash?limit=%d", c.driveURL, limit)

	var results searchResponse
	if err := c.get(ctx, fullURL, &results); err != nil {
		return nil, err
	}

	return results.Data, nil
}

// Upload uploads every regular file under dir. The service deduplicates by
// MD5, so re-uploading an existing file is a no-op on the remote side.
func (c *Client) Upload(ctx context.Context, dir string) ([]UploadResult, error) {
	var results []UploadResult

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		res, err := c.uploadFile(ctx, path)
		if err != nil {
			return fmt.Errorf("failed to upload %s: %w", d.Name(), err)
		}
		results = append(results, *res)
		return nil
	})
	if err != nil {
		return results, err
	}

	return results, nil
}

func (c *Client) uploadFile(ctx context.Context, path string) (*UploadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	sum := md5.Sum(data)

	query := url.Values{}
	query.Set("name", filepath.Base(path))
	query.Set("kind", "FILE")
	query.Set("md5", hex.EncodeToString(sum[:]))

	fullURL := fmt.Sprintf("%s/nodes?%s", c.contentURL, query.Encode())

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Cookie", c.cookieHeader())
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		// Already present remotely; MD5 dedup kicked in.
		return &UploadResult{Name: filepath.Base(path), Status: "duplicate"}, nil
	}
	if resp.StatusCode >= 400 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error: status=%d body=%s", resp.StatusCode, string(bodyBytes))
	}

	var node Node
	if err := json.NewDecoder(resp.Body).Decode(&node); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &UploadResult{Name: filepath.Base(path), NodeID: node.ID, Status: "uploaded"}, nil
}

// Download fetches node content into outputDir, which must already exist.
func (c *Client) Download(ctx context.Context, nodeIDs []string, outputDir string) (*DownloadSummary, error) {
	summary := &DownloadSummary{OutputDir: outputDir}

	for _, id := range nodeIDs {
		name, err := c.downloadNode(ctx, id, outputDir)
		if err != nil {
			log.Warn().Err(err).Str("node_id", id).Msg("Download failed")
			summary.Failed = append(summary.Failed, id)
			continue
		}
		summary.Files = append(summary.Files, name)
	}

	return summary, nil
}

func (c *Client) downloadNode(ctx context.Context, nodeID, outputDir string) (string, error) {
	fullURL := fmt.Sprintf("%s/nodes/%s/content?download=true", c.contentURL, url.PathEscape(nodeID))

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Cookie", c.cookieHeader())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("API error: status=%d body=%s", resp.StatusCode, string(bodyBytes))
	}

	name := nodeID
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil && params["filename"] != "" {
			name = filepath.Base(params["filename"])
		}
	}

	out, err := os.Create(filepath.Join(outputDir, name))
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}

	return name, nil
}

// RefreshStore pages the whole library through Search and upserts every node
// into the local store. Returns the number of nodes seen.
func (c *Client) RefreshStore(ctx context.Context, store *NodeStore, pageSize int) (int, error) {
	if pageSize <= 0 || pageSize > SearchLimit {
		pageSize = SearchLimit
	}

	total := 0
	offset := 0
	for {
		nodes, err := c.Search(ctx, "kind:(FILE)", pageSize, offset)
		if err != nil {
			return total, fmt.Errorf("failed to refresh at offset %d: %w", offset, err)
		}
		if len(nodes) == 0 {
			break
		}
		if err := store.Upsert(nodes); err != nil {
			return total, err
		}
		total += len(nodes)
		if len(nodes) < pageSize {
			break
		}
		offset += pageSize
	}

	return total, nil
}

// renderFolderTree produces an indented text view of the folder hierarchy.
func renderFolderTree(folders []Node) string {
	if len(folders) == 0 {
		return "No folders found."
	}

	byID := make(map[string]Node, len(folders))
	children := make(map[string][]Node)
	for _, f := range folders {
		byID[f.ID] = f
	}
	var roots []Node
	for _, f := range folders {
		parent := ""
		for _, p := range f.Parents {
			if _, ok := byID[p]; ok {
				parent = p
				break
			}
		}
		if parent == "" {
			roots = append(roots, f)
		} else {
			children[parent] = append(children[parent], f)
		}
	}

	sortByName := func(nodes []Node) {
		sort.Slice(nodes, func(i, j int) bool { return nodes[i].Name < nodes[j].Name })
	}
	sortByName(roots)
	for _, c := range children {
		sortByName(c)
	}

	var sb strings.Builder
	var walk func(n Node, depth int)
	walk = func(n Node, depth int) {
		sb.WriteString(strings.Repeat("  ", depth))
		sb.WriteString(n.Name)
		sb.WriteString("\n")
		for _, child := range children[n.ID] {
			walk(child, depth+1)
		}
	}
	for _, root := range roots {
		walk(root, 0)
	}

	return sb.String()
}

func (c *Client) cookieHeader() string {
	parts := make([]string, 0, len(c.cookies))
	for k := range c.cookies {
		parts = append(parts, k)
	}
	sort.Strings(parts)
	for i, k := range parts {
		parts[i] = fmt.Sprintf("%s=%s", k, c.cookies[k])
	}
	return strings.Join(parts, "; ")
}

func (c *Client) get(ctx context.Context, url string, result interface{}) error {
	return c.request(ctx, http.MethodGet, url, nil, result)
}

func (c *Client) patch(ctx context.Context, url string, body interface{}, result interface{}) error {
	return c.request(ctx, http.MethodPatch, url, body, result)
}

func (c *Client) request(ctx context.Context, method, url string, body interface{}, result interface{}) error {
	// Rate limit
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return err
	}

	// Prepare body
	var bodyReader io.Reader
	var jsonBody []byte
	if body != nil {
		var err error
		jsonBody, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	requestLogger := log.Debug().
		Str("method", method).
		Str("url", url)
	if len(jsonBody) > 0 && zerolog.GlobalLevel() <= zerolog.DebugLevel {
		requestLogger = requestLogger.RawJSON("payload", jsonBody)
	}
	requestLogger.Msg("Calling Amazon Photos API")

	// Create request
	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	// Set headers
	req.Header.Set("Cookie", c.cookieHeader())
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	// Execute request
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	log.Debug().
		Str("method", method).
		Str("url", url).
		Int("status", resp.StatusCode).
		Msg("Received Amazon Photos API response")

	// Check status
	if resp.StatusCode >= 400 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error: status=%d body=%s", resp.StatusCode, string(bodyBytes))
	}

	// Decode response
	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
