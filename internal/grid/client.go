// Package grid is the client for the grid directory service. A Client holds
// a unit's key material and, after Enroll, the session token that gates
// the mailbox and reporting operations.
package grid

import (
	"net/http"
	"strings"
	"sync"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/sirupsen/logrus"

	"gridlink.unit/gridlink/internal/identity"
)

const (
	DefaultEndpoint = "https://api.pwnagotchi.ai/api/v1"
	DefaultName     = "unit"
)

// Sealer encrypts a message body for its recipient. recipientPublicKey is
// the base64 SPKI PEM the directory publishes for the unit.
type Sealer interface {
	Seal(plaintext []byte, recipientPublicKey string) (string, error)
}

// PlaceholderPayload is sent as message data when no Sealer is configured.
const PlaceholderPayload = "base64 encoded AES-GCM encrypted data"

// Option configures a Client.
type Option func(*Client)

func WithName(name string) Option {
	return func(c *Client) { c.name = name }
}

func WithEndpoint(endpoint string) Option {
	return func(c *Client) { c.endpoint = strings.TrimRight(endpoint, "/") }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithSealer(s Sealer) Option {
	return func(c *Client) { c.sealer = s }
}

func WithLogger(l *logrus.Entry) Option {
	return func(c *Client) { c.log = l }
}

// Client talks to one directory endpoint as one unit. Clients share no
// state; any number may coexist in a process.
type Client struct {
	name     string
	endpoint string
	keys     *identity.KeyMaterial
	http     *http.Client
	sealer   Sealer
	log      *logrus.Entry

	// token is the only mutable field. Concurrent Enroll calls race to set
	// it and the last response wins.
	mu    sync.RWMutex
	token string
}

// New creates a Client for keys. The client starts unauthenticated.
func New(keys *identity.KeyMaterial, opts ...Option) *Client {
	c := &Client{
		name:     DefaultName,
		endpoint: DefaultEndpoint,
		keys:     keys,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = cleanhttp.DefaultPooledClient()
	}
	if c.log == nil {
		c.log = logrus.NewEntry(logrus.StandardLogger())
	}
	c.log = c.log.WithField("component", "grid")
	return c
}

// Name returns the display name used in the identity.
func (c *Client) Name() string {
	return c.name
}

// Endpoint returns the directory base URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Identity returns "<name>@<fingerprint>", derived fresh on each call.
func (c *Client) Identity() string {
	return c.keys.Identity(c.name)
}

// Fingerprint returns the unit fingerprint.
func (c *Client) Fingerprint() string {
	return c.keys.Fingerprint()
}

// PublicKeyPEM returns the unit public key as SPKI PEM.
func (c *Client) PublicKeyPEM() string {
	return c.keys.ExportPublicKey()
}

// Token returns the session token and whether one is held.
func (c *Client) Token() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token, c.token != ""
}

// Authenticated reports whether Enroll has succeeded.
func (c *Client) Authenticated() bool {
	_, ok := c.Token()
	return ok
}

func (c *Client) setToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) requireSession() error {
	if !c.Authenticated() {
		return ErrSessionRequired
	}
	return nil
}
