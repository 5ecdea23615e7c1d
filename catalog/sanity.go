package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"VoidFM/model"
)

// SanityConfig locates a Sanity dataset.
type SanityConfig struct {
	ProjectID  string
	Dataset    string
	APIVersion string
	Token      string
	UseCDN     bool
	// BaseURL overrides the derived API host (tests, proxies).
	BaseURL string
}

// SanityClient queries a Sanity dataset over the HTTP GROQ API.
type SanityClient struct {
	baseURL    string
	dataset    string
	apiVersion string
	token      string
	httpClient *http.Client
}

// NewSanityClient returns ErrNotConfigured when no project id is set.
func NewSanityClient(cfg SanityConfig) (*SanityClient, error) {
	if cfg.ProjectID == "" && cfg.BaseURL == "" {
		return nil, ErrNotConfigured
	}
	if cfg.Dataset == "" {
		cfg.Dataset = "production"
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = "2024-01-01"
	}
	base := cfg.BaseURL
	if base == "" {
		host := "api"
		// 带 token 的请求不能走 CDN
		if cfg.UseCDN && cfg.Token == "" {
			host = "apicdn"
		}
		base = fmt.Sprintf("https://%s.%s.sanity.io", cfg.ProjectID, host)
	}
	return &SanityClient{
		baseURL:    strings.TrimRight(base, "/"),
		dataset:    cfg.Dataset,
		apiVersion: strings.TrimPrefix(cfg.APIVersion, "v"),
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}, nil
}

type sanityResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Description string `json:"description"`
		Type        string `json:"type"`
	} `json:"error"`
}

// query runs a GROQ query and decodes its result into out. A null result
// yields ErrNotFound.
func (c *SanityClient) query(ctx context.Context, groq string, params map[string]string, out interface{}) error {
	q := url.Values{}
	q.Set("query", groq)
	for k, v := range params {
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode param %s: %w", k, err)
		}
		q.Set("$"+k, string(encoded))
	}
	endpoint := fmt.Sprintf("%s/v%s/data/query/%s?%s", c.baseURL, c.apiVersion, url.PathEscape(c.dataset), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sanity request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read sanity response: %w", err)
	}

	var result sanityResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("decode sanity response (status %d): %w", resp.StatusCode, err)
	}
	if result.Error != nil {
		return fmt.Errorf("sanity query error (status %d): %s", resp.StatusCode, result.Error.Description)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sanity returned status %d", resp.StatusCode)
	}
	if len(result.Result) == 0 || string(result.Result) == "null" {
		return ErrNotFound
	}
	return json.Unmarshal(result.Result, out)
}

type sanityRitual struct {
	model.Ritual
	RitualText json.RawMessage `json:"ritualText"`
}

func (r sanityRitual) toModel() model.Ritual {
	out := r.Ritual
	out.RitualText = flattenText(r.RitualText)
	out.LoreConnections = compact(out.LoreConnections)
	return out
}

type sanityLore struct {
	model.LoreNode
	Content json.RawMessage `json:"content"`
}

type sanityPage struct {
	model.PageContent
	Sections []struct {
		Key     string          `json:"_key"`
		Heading string          `json:"heading"`
		Body    json.RawMessage `json:"body"`
	} `json:"sections"`
}

func (c *SanityClient) Rituals(ctx context.Context) ([]model.Ritual, error) {
	var raw []sanityRitual
	if err := c.query(ctx, ritualsQuery, nil, &raw); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	out := make([]model.Ritual, 0, len(raw))
	for _, r := range raw {
		out = append(out, r.toModel())
	}
	return out, nil
}

func (c *SanityClient) RitualBySlug(ctx context.Context, slug string) (*model.Ritual, error) {
	var raw sanityRitual
	if err := c.query(ctx, ritualBySlugQuery, map[string]string{"slug": slug}, &raw); err != nil {
		return nil, err
	}
	r := raw.toModel()
	return &r, nil
}

func (c *SanityClient) LoreNodes(ctx context.Context) ([]model.LoreNode, error) {
	var raw []sanityLore
	if err := c.query(ctx, loreQuery, nil, &raw); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	out := make([]model.LoreNode, 0, len(raw))
	for _, l := range raw {
		node := l.LoreNode
		node.Content = flattenText(l.Content)
		out = append(out, node)
	}
	return out, nil
}

func (c *SanityClient) SiteSettings(ctx context.Context) (*model.SiteSettings, error) {
	var s model.SiteSettings
	if err := c.query(ctx, siteSettingsQuery, nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *SanityClient) Page(ctx context.Context, pageID string) (*model.PageContent, error) {
	var raw sanityPage
	if err := c.query(ctx, pageByPageIDQuery, map[string]string{"pageId": pageID}, &raw); err != nil {
		return nil, err
	}
	page := raw.PageContent
	page.Sections = make([]model.PageSection, 0, len(raw.Sections))
	for _, s := range raw.Sections {
		page.Sections = append(page.Sections, model.PageSection{
			Key:     s.Key,
			Heading: s.Heading,
			Body:    flattenText(s.Body),
		})
	}
	return &page, nil
}

type block struct {
	Type     string `json:"_type"`
	Children []struct {
		Text string `json:"text"`
	} `json:"children"`
}

// flattenText turns portable text (or a plain string / string list) into
// one string per block.
func flattenText(raw json.RawMessage) []string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return splitLines(single)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	var out []string
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			out = append(out, s)
			continue
		}
		var b block
		if err := json.Unmarshal(item, &b); err != nil || len(b.Children) == 0 {
			continue
		}
		var sb strings.Builder
		for _, child := range b.Children {
			sb.WriteString(child.Text)
		}
		out = append(out, sb.String())
	}
	return out
}

func splitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimRight(line, "\r"); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func compact(list []string) []string {
	out := list[:0]
	for _, s := range list {
		if s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
