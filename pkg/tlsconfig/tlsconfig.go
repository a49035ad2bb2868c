// Package tlsconfig provides a server tls.Config whose certificate is
// reloaded when the underlying files change.
package tlsconfig

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/mpapenbr/livetiming-relay/log"
)

var (
	ErrNoCertificate = errors.New("no certificate source configured")
	ErrInvalidCA     = errors.New("no certificate found in CA file")
)

type Provider struct {
	certFile      string
	keyFile       string
	caFile        string
	traefikFile   string
	traefikDomain string

	mu   sync.RWMutex
	cert *tls.Certificate
	l    *log.Logger
}

type Option func(p *Provider)

func WithKeyPair(certFile, keyFile string) Option {
	return func(p *Provider) {
		p.certFile = certFile
		p.keyFile = keyFile
	}
}

// WithTraefik reads the certificate for domain from a traefik acme store.
// It takes precedence over WithKeyPair.
func WithTraefik(file, domain string) Option {
	return func(p *Provider) {
		p.traefikFile = file
		p.traefikDomain = domain
	}
}

// WithClientCA enables optional client certificate verification.
func WithClientCA(caFile string) Option {
	return func(p *Provider) {
		p.caFile = caFile
	}
}

func WithLogger(l *log.Logger) Option {
	return func(p *Provider) {
		p.l = l
	}
}

func NewProvider(opts ...Option) *Provider {
	ret := &Provider{l: log.Default().Named("tls")}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Enabled reports if a certificate source is configured.
func (p *Provider) Enabled() bool {
	return (p.traefikFile != "" && p.traefikDomain != "") ||
		(p.certFile != "" && p.keyFile != "")
}

// Config loads the certificate and returns a tls.Config using it.
// The certificate files are watched until ctx is done.
func (p *Provider) Config(ctx context.Context) (*tls.Config, error) {
	if !p.Enabled() {
		return nil, ErrNoCertificate
	}
	if err := p.load(); err != nil {
		return nil, err
	}
	cfg := &tls.Config{
		GetCertificate: func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
			return p.Certificate(), nil
		},
		MinVersion: tls.VersionTLS13,
	}
	if p.caFile != "" {
		caCert, err := os.ReadFile(p.caFile)
		if err != nil {
			return nil, err
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, ErrInvalidCA
		}
		cfg.ClientCAs = pool
		cfg.ClientAuth = tls.VerifyClientCertIfGiven
	}
	if err := p.watch(ctx); err != nil {
		p.l.Warn("certificate changes will not be detected", log.ErrorField(err))
	}
	return cfg, nil
}

func (p *Provider) Certificate() *tls.Certificate {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cert
}

func (p *Provider) load() error {
	var cert tls.Certificate
	var err error
	if p.traefikFile != "" && p.traefikDomain != "" {
		p.l.Info("Looking up traefik certs",
			log.String("file", p.traefikFile),
			log.String("domain", p.traefikDomain))
		cert, err = FromTraefik(p.traefikFile, p.traefikDomain)
	} else {
		p.l.Info("Loading cert",
			log.String("key", p.keyFile),
			log.String("cert", p.certFile))
		cert, err = tls.LoadX509KeyPair(p.certFile, p.keyFile)
	}
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cert = &cert
	return nil
}

func (p *Provider) watchedFiles() []string {
	if p.traefikFile != "" && p.traefikDomain != "" {
		return []string{p.traefikFile}
	}
	return []string{p.certFile, p.keyFile}
}

func (p *Provider) watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	for _, f := range p.watchedFiles() {
		if err := watcher.Add(f); err != nil {
			watcher.Close()
			return err
		}
	}
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Chmod) {
					p.l.Info("cert file changed, reloading cert",
						log.String("file", event.Name))
					// keep the previous certificate if the new one is unusable
					if err := p.load(); err != nil {
						p.l.Error("could not reload cert", log.ErrorField(err))
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				p.l.Error("watcher error", log.ErrorField(err))
			}
		}
	}()
	return nil
}
