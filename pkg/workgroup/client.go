package workgroup

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/cardinalsites/samlauth/pkg/observability"
)

// DefaultBaseURL is the production workgroup service endpoint.
const DefaultBaseURL = "https://workgroupsvc.stanford.edu/workgroups/2.0"

// DefaultTimeout bounds a single workgroup API request.
const DefaultTimeout = 30 * time.Second

// sentinelWorkgroup is a workgroup that always exists; querying it proves
// the API connection and credentials work.
const sentinelWorkgroup = "uit:sws"

// cacheSize bounds the per-instance response cache. A single login
// evaluation touches a handful of distinct keys at most.
const cacheSize = 128

// Query types understood by the workgroup API.
const (
	queryUser      = "user"
	queryWorkgroup = "workgroup"
)

// Client is the read-only view of the workgroup service used by the
// authorization and role mapping engines.
type Client interface {
	// UserWorkgroups returns the names of every workgroup the user belongs
	// to. An API failure returns an empty list.
	UserWorkgroups(ctx context.Context, sunetid string) []string

	// UserInGroup reports whether the user belongs to the workgroup.
	UserInGroup(ctx context.Context, group, sunetid string) bool

	// UserInAnyGroup reports whether the user belongs to at least one of
	// the workgroups.
	UserInAnyGroup(ctx context.Context, groups []string, sunetid string) bool

	// UserInAllGroups reports whether the user belongs to every workgroup.
	UserInAllGroups(ctx context.Context, groups []string, sunetid string) bool

	// IsWorkgroupValid reports whether the workgroup exists.
	IsWorkgroupValid(ctx context.Context, group string) bool

	// IsSunetValid reports whether the sunetid is known to the directory.
	IsSunetValid(ctx context.Context, sunetid string) bool

	// ConnectionSuccessful probes the API with a known-valid workgroup.
	ConnectionSuccessful(ctx context.Context) bool
}

// Config holds the connection settings for the workgroup API.
type Config struct {
	BaseURL  string
	CertPath string
	KeyPath  string
	Timeout  time.Duration
}

// APIClient queries the workgroup service over HTTPS and memoizes
// successful responses for its own lifetime.
type APIClient struct {
	baseURL string
	http    *http.Client
	cache   *lru.Cache[cacheKey, map[string]interface{}]
	logger  *observability.Logger
	metrics *observability.Metrics
}

type cacheKey struct {
	kind string
	id   string
}

// NewAPIClient creates a workgroup API client. The memoization cache is
// scoped to the returned instance.
func NewAPIClient(cfg Config, logger *observability.Logger, metrics *observability.Metrics) *APIClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	transport := http.DefaultTransport
	if cfg.CertPath != "" && cfg.KeyPath != "" {
		cert, err := tls.LoadX509KeyPair(cfg.CertPath, cfg.KeyPath)
		if err != nil {
			// Continue without client auth; the request is still attempted.
			logger.WithError(err).Warn("unable to load workgroup api client certificate")
		} else {
			transport = &http.Transport{
				TLSClientConfig: &tls.Config{Certificates: []tls.Certificate{cert}},
			}
		}
	}

	cache, _ := lru.New[cacheKey, map[string]interface{}](cacheSize)

	return &APIClient{
		baseURL: cfg.BaseURL,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(transport),
		},
		cache:   cache,
		logger:  logger.WithField("component", "workgroup_api"),
		metrics: metrics,
	}
}

// UserWorkgroups returns the names of every workgroup the user belongs to.
func (c *APIClient) UserWorkgroups(ctx context.Context, sunetid string) []string {
	payload, ok := c.call(ctx, queryUser, sunetid)
	if !ok {
		return nil
	}

	results, _ := payload["results"].([]interface{})
	names := make([]string, 0, len(results))
	for _, result := range results {
		entry, ok := result.(map[string]interface{})
		if !ok {
			continue
		}
		if name, ok := entry["name"].(string); ok {
			names = append(names, name)
		}
	}
	return names
}

// UserInGroup reports whether the user belongs to the workgroup.
func (c *APIClient) UserInGroup(ctx context.Context, group, sunetid string) bool {
	for _, name := range c.UserWorkgroups(ctx, sunetid) {
		if name == group {
			return true
		}
	}
	return false
}

// UserInAnyGroup reports whether the user belongs to at least one workgroup.
func (c *APIClient) UserInAnyGroup(ctx context.Context, groups []string, sunetid string) bool {
	names := c.UserWorkgroups(ctx, sunetid)
	for _, group := range groups {
		for _, name := range names {
			if name == group {
				return true
			}
		}
	}
	return false
}

// UserInAllGroups reports whether the user belongs to every workgroup.
func (c *APIClient) UserInAllGroups(ctx context.Context, groups []string, sunetid string) bool {
	names := c.UserWorkgroups(ctx, sunetid)
	members := make(map[string]bool, len(names))
	for _, name := range names {
		members[name] = true
	}
	for _, group := range groups {
		if !members[group] {
			return false
		}
	}
	return true
}

// IsWorkgroupValid reports whether the workgroup exists.
func (c *APIClient) IsWorkgroupValid(ctx context.Context, group string) bool {
	payload, ok := c.call(ctx, queryWorkgroup, group)
	return ok && len(payload) > 0
}

// IsSunetValid reports whether the sunetid is known to the directory.
func (c *APIClient) IsSunetValid(ctx context.Context, sunetid string) bool {
	payload, ok := c.call(ctx, queryUser, sunetid)
	return ok && len(payload) > 0
}

// ConnectionSuccessful probes the API with a known-valid workgroup.
func (c *APIClient) ConnectionSuccessful(ctx context.Context) bool {
	return c.IsWorkgroupValid(ctx, sentinelWorkgroup)
}

// call issues one workgroup API query, memoized by (kind, id). Only
// successful responses are cached; a failure is reported as (nil, false)
// and the next call for the same key hits the network again.
func (c *APIClient) call(ctx context.Context, kind, id string) (map[string]interface{}, bool) {
	key := cacheKey{kind: kind, id: id}
	if payload, ok := c.cache.Get(key); ok {
		if c.metrics != nil {
			c.metrics.CacheHitsTotal.Inc()
		}
		return payload, true
	}
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		c.fail(kind, err, "invalid workgroup api request")
		return nil, false
	}
	query := url.Values{}
	query.Set("type", kind)
	query.Set("id", id)
	req.URL.RawQuery = query.Encode()

	start := time.Now()
	resp, err := c.http.Do(req)
	if c.metrics != nil {
		c.metrics.WorkgroupRequestSeconds.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		c.fail(kind, err, "unable to connect to workgroup api")
		return nil, false
	}
	defer resp.Body.Close()

	if c.metrics != nil {
		c.metrics.WorkgroupRequestsTotal.WithLabelValues(kind, strconv.Itoa(resp.StatusCode)).Inc()
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.WithFields(map[string]interface{}{
			"status": resp.StatusCode,
			"type":   kind,
		}).Error("workgroup api returned unexpected status")
		return nil, false
	}

	var payload map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.fail(kind, err, "unable to decode workgroup api response")
		return nil, false
	}

	c.cache.Add(key, payload)
	return payload, true
}

func (c *APIClient) fail(kind string, err error, message string) {
	if c.metrics != nil {
		c.metrics.WorkgroupErrorsTotal.Inc()
		c.metrics.WorkgroupRequestsTotal.WithLabelValues(kind, "error").Inc()
	}
	c.logger.WithError(err).Error(message)
}
