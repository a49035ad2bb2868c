package health

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"connectrpc.com/grpchealth"
	"connectrpc.com/grpcreflect"
	"connectrpc.com/otelconnect"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mpapenbr/livetiming-relay/log"
)

// service names reported by the health endpoint
const (
	FeedService = "ltr.feed"
	GateService = "ltr.gate"
)

// Server provides the gRPC health and reflection services.
// The overall status ("") follows the feed connection.
type Server struct {
	addr    string
	checker *grpchealth.StaticChecker
	mux     *http.ServeMux
	tls     *tls.Config
	l       *log.Logger
}

type Option func(s *Server)

func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		s.l = l
	}
}

// WithTLSConfig serves via https instead of h2c.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(s *Server) {
		s.tls = cfg
	}
}

func NewServer(addr string, opts ...Option) *Server {
	ret := &Server{
		addr:    addr,
		checker: grpchealth.NewStaticChecker(FeedService, GateService),
		mux:     http.NewServeMux(),
		l:       log.Default().Named("health"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	// nothing is known until the feed connects
	ret.SetFeedConnected(false)
	ret.SetGateOnline(false)
	ret.register()
	return ret
}

func (s *Server) register() {
	var handlerOpts []connect.HandlerOption
	if myOtel, err := otelconnect.NewInterceptor(); err == nil {
		handlerOpts = append(handlerOpts, connect.WithInterceptors(myOtel))
	} else {
		s.l.Warn("could not create otel interceptor", log.ErrorField(err))
	}
	s.mux.Handle(grpchealth.NewHandler(s.checker, handlerOpts...))

	reflector := grpcreflect.NewStaticReflector(grpchealth.HealthV1ServiceName)
	s.mux.Handle(grpcreflect.NewHandlerV1(reflector))
	s.mux.Handle(grpcreflect.NewHandlerV1Alpha(reflector))
}

// SetFeedConnected is meant to be used as status callback of the feed client.
func (s *Server) SetFeedConnected(connected bool) {
	status := toStatus(connected)
	s.checker.SetStatus(FeedService, status)
	s.checker.SetStatus("", status)
}

// SetGateOnline reflects the publication state.
// Offline is reported as not serving for GateService only.
func (s *Server) SetGateOnline(online bool) {
	s.checker.SetStatus(GateService, toStatus(online))
}

// Handler returns the handler serving all registered services.
func (s *Server) Handler() http.Handler {
	return h2c.NewHandler(newCORS().Handler(s.mux), &http2.Server{})
}

// Run serves requests until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	//nolint:gosec // by design
	server := &http.Server{
		Addr:      s.addr,
		Handler:   s.Handler(),
		TLSConfig: s.tls,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.l.Warn("health server shutdown", log.ErrorField(err))
		}
	}()
	s.l.Info("Starting health server",
		log.String("addr", s.addr), log.Bool("tls", s.tls != nil))
	var err error
	if s.tls != nil {
		err = server.ListenAndServeTLS("", "")
	} else {
		err = server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func toStatus(ok bool) grpchealth.Status {
	if ok {
		return grpchealth.StatusServing
	}
	return grpchealth.StatusNotServing
}

func newCORS() *cors.Cors {
	return cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowOriginFunc: func(origin string) bool {
			return true
		},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{
			"Accept",
			"Accept-Encoding",
			"Accept-Post",
			"Connect-Accept-Encoding",
			"Connect-Content-Encoding",
			"Content-Encoding",
			"Grpc-Accept-Encoding",
			"Grpc-Encoding",
			"Grpc-Message",
			"Grpc-Status",
			"Grpc-Status-Details-Bin",
		},
		MaxAge: int(2 * time.Hour / time.Second),
	})
}
