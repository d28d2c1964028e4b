package privatedb

import (
	"context"
	"fmt"
	"net/url"

	"github.com/ovh/go-ovh/ovh"
)

// requester is the subset of *ovh.Client used here.
type requester interface {
	GetWithContext(ctx context.Context, url string, resType interface{}) error
	PostWithContext(ctx context.Context, url string, reqBody, resType interface{}) error
}

// Config holds OVH API configuration.
type Config struct {
	Endpoint          string // endpoint name such as "ovh-eu", or a full URL
	ApplicationKey    string
	ApplicationSecret string
	ConsumerKey       string
	ServiceName       string
	DatabaseName      string
	SendEmail         bool // ask OVH to mail the dump link as well
}

// Client implements API on top of go-ovh.
type Client struct {
	api          requester
	serviceName  string
	databaseName string
	sendEmail    bool
}

// NewClient creates a client for one service/database pair. Empty credentials
// are resolved by go-ovh from OVH_* variables or ovh.conf.
func NewClient(cfg Config) (*Client, error) {
	api, err := ovh.NewClient(cfg.Endpoint, cfg.ApplicationKey, cfg.ApplicationSecret, cfg.ConsumerKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create OVH client: %w", err)
	}

	return newClient(api, cfg), nil
}

func newClient(api requester, cfg Config) *Client {
	return &Client{
		api:          api,
		serviceName:  cfg.ServiceName,
		databaseName: cfg.DatabaseName,
		sendEmail:    cfg.SendEmail,
	}
}

// ListDumps implements API.ListDumps.
func (c *Client) ListDumps(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := c.api.GetWithContext(ctx, c.dumpsPath(), &ids); err != nil {
		return nil, fmt.Errorf("failed to list dumps of %s/%s: %w", c.serviceName, c.databaseName, err)
	}
	return ids, nil
}

// CreateDump implements API.CreateDump.
func (c *Client) CreateDump(ctx context.Context) (*Task, error) {
	body := struct {
		SendEmail bool `json:"sendEmail"`
	}{SendEmail: c.sendEmail}

	task := &Task{}
	if err := c.api.PostWithContext(ctx, c.dumpsPath(), body, task); err != nil {
		return nil, fmt.Errorf("failed to create dump of %s/%s: %w", c.serviceName, c.databaseName, err)
	}
	return task, nil
}

// GetDump implements API.GetDump.
func (c *Client) GetDump(ctx context.Context, id int64) (*Dump, error) {
	dump := &Dump{}
	if err := c.api.GetWithContext(ctx, fmt.Sprintf("%s/%d", c.dumpsPath(), id), dump); err != nil {
		return nil, fmt.Errorf("failed to get dump %d: %w", id, err)
	}
	return dump, nil
}

func (c *Client) dumpsPath() string {
	return fmt.Sprintf("/hosting/privateDatabase/%s/database/%s/dump",
		url.PathEscape(c.serviceName), url.PathEscape(c.databaseName))
}
