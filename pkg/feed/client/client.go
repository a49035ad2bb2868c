package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/mpapenbr/livetiming-relay/log"
	"github.com/mpapenbr/livetiming-relay/pkg/feed/decode"
	"github.com/mpapenbr/livetiming-relay/pkg/feed/frame"
	"github.com/mpapenbr/livetiming-relay/pkg/model"
)

const (
	DefaultReconnectDelay = 5 * time.Second
	DefaultDialTimeout    = 10 * time.Second
	readBufferSize        = 32 * 1024
)

var ErrConnectionClosed = errors.New("feed connection closed by peer")

// Applier consumes decoded messages in arrival order.
type Applier interface {
	Apply(msg model.Message) error
}

// StatusFunc is called whenever the connection state changes.
type StatusFunc func(connected bool)

// Client reads the timing feed, splits it into blocks and hands the decoded
// messages to the Applier. Lost connections are re-established after a
// fixed delay until the context is done.
type Client struct {
	addr           string
	applier        Applier
	reconnectDelay time.Duration
	dialTimeout    time.Duration
	frameOpts      []frame.Option
	onStatus       StatusFunc
	printMessage   bool
	metrics        clientMetrics
	l              *log.Logger
}

type clientMetrics struct {
	messages     metric.Int64Counter
	decodeErrors metric.Int64Counter
	discarded    metric.Int64Counter
	reconnects   metric.Int64Counter
}

type Option func(c *Client)

func WithReconnectDelay(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.reconnectDelay = d
		}
	}
}

func WithDialTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.dialTimeout = d
		}
	}
}

// WithFrameOptions configures the extractor created for each connection.
func WithFrameOptions(opts ...frame.Option) Option {
	return func(c *Client) {
		c.frameOpts = append(c.frameOpts, opts...)
	}
}

func WithStatusFunc(f StatusFunc) Option {
	return func(c *Client) {
		c.onStatus = f
	}
}

// WithPrintMessage logs every decoded message on debug level.
func WithPrintMessage(print bool) Option {
	return func(c *Client) {
		c.printMessage = print
	}
}

func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		c.l = l
	}
}

func NewClient(addr string, applier Applier, opts ...Option) (*Client, error) {
	ret := &Client{
		addr:           addr,
		applier:        applier,
		reconnectDelay: DefaultReconnectDelay,
		dialTimeout:    DefaultDialTimeout,
		onStatus:       func(bool) {},
		l:              log.Default().Named("feed"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	// fail early on invalid extractor settings
	if _, err := frame.NewExtractor(ret.frameOpts...); err != nil {
		return nil, err
	}
	ret.setupMetrics()
	return ret, nil
}

func (c *Client) setupMetrics() {
	meter := otel.GetMeterProvider().Meter("ltr.feed")
	var err error
	if c.metrics.messages, err = meter.Int64Counter("ltr.feed.messages",
		metric.WithDescription("Number of decoded messages"),
		metric.WithUnit("{count}")); err != nil {
		c.l.Warn("could not create metric", log.ErrorField(err))
	}
	if c.metrics.decodeErrors, err = meter.Int64Counter("ltr.feed.decode_errors",
		metric.WithDescription("Number of dropped blocks"),
		metric.WithUnit("{count}")); err != nil {
		c.l.Warn("could not create metric", log.ErrorField(err))
	}
	if c.metrics.discarded, err = meter.Int64Counter("ltr.feed.discarded",
		metric.WithDescription("Number of messages skipped by the scan policy"),
		metric.WithUnit("{count}")); err != nil {
		c.l.Warn("could not create metric", log.ErrorField(err))
	}
	if c.metrics.reconnects, err = meter.Int64Counter("ltr.feed.reconnects",
		metric.WithDescription("Number of connection attempts after failures"),
		metric.WithUnit("{count}")); err != nil {
		c.l.Warn("could not create metric", log.ErrorField(err))
	}
}

// Run connects to the feed and processes data until ctx is done.
func (c *Client) Run(ctx context.Context) {
	for {
		err := c.session(ctx)
		c.onStatus(false)
		if ctx.Err() != nil {
			c.l.Info("feed client stopped")
			return
		}
		c.l.Warn("feed connection lost",
			log.String("addr", c.addr),
			log.Duration("retryIn", c.reconnectDelay),
			log.ErrorField(err))
		select {
		case <-ctx.Done():
			c.l.Info("feed client stopped")
			return
		case <-time.After(c.reconnectDelay):
			if c.metrics.reconnects != nil {
				c.metrics.reconnects.Add(ctx, 1)
			}
		}
	}
}

// session handles a single connection. Partial data is discarded with it.
func (c *Client) session(ctx context.Context) error {
	d := net.Dialer{Timeout: c.dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.addr, err)
	}
	c.l.Info("connected to feed", log.String("addr", c.addr))
	c.onStatus(true)

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	defer conn.Close()

	return c.Consume(ctx, conn)
}

// Consume processes r until it is exhausted or fails.
// A regular end of r is reported as ErrConnectionClosed.
func (c *Client) Consume(ctx context.Context, r io.Reader) error {
	extractor, err := frame.NewExtractor(c.frameOpts...)
	if err != nil {
		return err
	}
	buf := make([]byte, readBufferSize)
	for {
		n, readErr := r.Read(buf)
		if n > 0 {
			feedErr := extractor.Feed(buf[:n])
			for _, d := range extractor.Discarded() {
				c.reportDiscard(ctx, d)
			}
			for _, block := range extractor.Drain() {
				c.handle(ctx, block)
			}
			if feedErr != nil {
				return feedErr
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				if extractor.Pending() > 0 {
					c.l.Debug("discarding incomplete data",
						log.Int("bytes", extractor.Pending()))
				}
				return ErrConnectionClosed
			}
			return readErr
		}
	}
}

func (c *Client) reportDiscard(ctx context.Context, d frame.Discard) {
	kinds := make([]string, 0, len(d.Kinds))
	for _, k := range d.Kinds {
		kinds = append(kinds, string(k))
		if c.metrics.discarded != nil {
			c.metrics.discarded.Add(ctx, 1,
				metric.WithAttributes(attribute.String("kind", string(k))))
		}
	}
	c.l.Warn("skipped messages in front of block",
		log.String("block", string(d.Before)),
		log.Int("bytes", d.Bytes),
		log.Strings("kinds", kinds))
}

func (c *Client) handle(ctx context.Context, block frame.Block) {
	kindAttr := metric.WithAttributes(attribute.String("kind", string(block.Kind)))
	msg, err := decode.Decode(block.Kind, block.Data)
	if err != nil {
		if c.metrics.decodeErrors != nil {
			c.metrics.decodeErrors.Add(ctx, 1, kindAttr)
		}
		var de *decode.DecodeError
		if errors.As(err, &de) {
			c.l.Warn("dropping message",
				log.String("kind", string(de.Kind)),
				log.Bool("syntax", de.Syntax),
				log.String("field", de.Field),
				log.String("value", de.Value),
				log.ErrorField(de.Err))
		} else {
			c.l.Warn("dropping message",
				log.String("kind", string(block.Kind)), log.ErrorField(err))
		}
		return
	}
	if c.metrics.messages != nil {
		c.metrics.messages.Add(ctx, 1, kindAttr)
	}
	if c.printMessage {
		c.l.Debug("message", log.String("kind", string(msg.Kind())), log.Any("msg", msg))
	}
	if err := c.applier.Apply(msg); err != nil {
		c.l.Error("could not apply message",
			log.String("kind", string(msg.Kind())), log.ErrorField(err))
	}
}
