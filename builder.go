package authsession

import (
	"errors"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wheelrent/authsession/credstore"
	"github.com/wheelrent/authsession/idp"
	"github.com/wheelrent/authsession/profile"
)

// Builder assembles a Manager. Chain With* calls and finish with Build; the
// zero builder carries the default Config.
type Builder struct {
	cfg         *Config
	redisClient redis.UniversalClient
	secure      credstore.Backend
	general     credstore.Backend
	binding     idp.Binding
	profileBase string
	httpClient  *http.Client
	sink        EventSink

	err error
}

// New creates a Builder with default configuration.
func New() *Builder {
	return &Builder{cfg: defaultConfig()}
}

// WithConfig replaces the entire configuration. Validation happens in Build.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.cfg = cloneConfig(&cfg)
	return b
}

// WithSessionWindow overrides the advisory session window.
func (b *Builder) WithSessionWindow(d time.Duration) *Builder {
	b.cfg.Session.Window = d
	return b
}

// WithRedis supplies the Redis client backing the general credential store.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redisClient = client
	return b
}

// WithGeneralBackend supplies the general backend directly, bypassing Redis.
func (b *Builder) WithGeneralBackend(backend credstore.Backend) *Builder {
	b.general = backend
	return b
}

// WithSecureBackend supplies the secure backend directly.
func (b *Builder) WithSecureBackend(backend credstore.Backend) *Builder {
	b.secure = backend
	return b
}

// WithSealedFile configures a sealed-file secure backend at path, encrypted
// with a key derived from passphrase.
func (b *Builder) WithSealedFile(path string, passphrase []byte) *Builder {
	backend, err := credstore.NewSealedFileBackend(path, passphrase)
	if err != nil {
		b.err = err
		return b
	}
	b.secure = backend
	return b
}

// WithBinding supplies the identity provider binding.
func (b *Builder) WithBinding(binding idp.Binding) *Builder {
	b.binding = binding
	return b
}

// WithProfileService supplies the profile service base URL.
func (b *Builder) WithProfileService(baseURL string) *Builder {
	b.profileBase = baseURL
	return b
}

// WithHTTPClient supplies the base HTTP client whose transport is wrapped
// with bearer token injection. Its timeout and cookie jar are preserved.
func (b *Builder) WithHTTPClient(client *http.Client) *Builder {
	b.httpClient = client
	return b
}

// WithEventSink enables the event pipeline delivering to sink.
func (b *Builder) WithEventSink(sink EventSink) *Builder {
	b.sink = sink
	b.cfg.Events.Enabled = true
	return b
}

// WithMetricsEnabled toggles counter recording.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.cfg.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles refresh latency buckets.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.cfg.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, wires the storage adapter, transport,
// and profile client, and returns a ready Manager. The Manager holds no
// session until Initialize or a sign-in operation runs.
func (b *Builder) Build() (*Manager, error) {
	if b.err != nil {
		return nil, b.err
	}
	if err := b.cfg.Validate(); err != nil {
		return nil, err
	}
	if b.binding == nil {
		return nil, errors.New("identity provider binding required (WithBinding)")
	}
	if b.secure == nil {
		return nil, errors.New("secure backend required (WithSecureBackend or WithSealedFile)")
	}

	general := b.general
	if general == nil {
		if b.redisClient == nil {
			return nil, errors.New("general backend required (WithRedis or WithGeneralBackend)")
		}
		general = credstore.NewRedisBackend(b.redisClient, b.cfg.Storage.GeneralPrefix)
	}
	store, err := credstore.NewAdapter(b.secure, general)
	if err != nil {
		return nil, err
	}

	base := b.httpClient
	if base == nil {
		base = &http.Client{Timeout: 30 * time.Second}
	}
	transport := NewAuthTransport(base.Transport)
	client := &http.Client{
		Transport:     transport,
		Timeout:       base.Timeout,
		Jar:           base.Jar,
		CheckRedirect: base.CheckRedirect,
	}

	if b.profileBase == "" {
		return nil, errors.New("profile service base URL required (WithProfileService)")
	}
	profiles, err := profile.NewClient(b.profileBase, client)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		cfg:       cloneConfig(b.cfg),
		store:     store,
		binding:   b.binding,
		profiles:  profiles,
		transport: transport,
		client:    client,
		metrics:   NewMetrics(b.cfg.Metrics),
		events:    newEventDispatcher(b.cfg.Events, b.sink),
	}

	if n, ok := b.binding.(idp.Notifier); ok {
		m.unsubscribe = n.Subscribe(m.onProviderChange)
	}

	return m, nil
}
