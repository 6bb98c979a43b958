// Package web serves the catalog and enquiry HTTP API and the stored
// thumbnails.
package web

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"vectortube/internal/catalog"
	"vectortube/internal/enquiry"
	"vectortube/internal/errs"
	"vectortube/internal/storage"
)

// CatalogService is the part of catalog.Service the HTTP API drives.
type CatalogService interface {
	Create(ctx context.Context, origin catalog.Origin, in catalog.CreateInput) (catalog.Record, error)
	List(ctx context.Context, origin catalog.Origin) ([]catalog.Record, error)
	Get(ctx context.Context, origin catalog.Origin, id string) (catalog.Record, error)
	Delete(ctx context.Context, id string) (catalog.Record, error)
	URLPrefix() string
}

type EnquiryService interface {
	Register(ctx context.Context, sub enquiry.Submission) (enquiry.Enquiry, error)
}

var (
	_ CatalogService = (*catalog.Service)(nil)
	_ EnquiryService = (*enquiry.Service)(nil)
)

const (
	defaultMaxUploadBytes = 10 << 20
	maxEnquiryBytes       = 1 << 20
	shutdownTimeout       = 10 * time.Second
)

type Options struct {
	// TrustProxy takes scheme and host from X-Forwarded-* headers.
	TrustProxy     bool
	MaxUploadBytes int64
	// JWTSecret, when set, guards catalog mutations.
	JWTSecret string
}

type Server struct {
	catalog   CatalogService
	enquiries EnquiryService
	assets    *storage.FSAssetStore

	trustProxy     bool
	maxUploadBytes int64
	jwtSecret      string

	log    *zap.Logger
	router chi.Router
}

func NewServer(
	catalogService CatalogService,
	enquiryService EnquiryService,
	assets *storage.FSAssetStore,
	opts Options,
	log *zap.Logger,
) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}
	s := &Server{
		catalog:        catalogService,
		enquiries:      enquiryService,
		assets:         assets,
		trustProxy:     opts.TrustProxy,
		maxUploadBytes: opts.MaxUploadBytes,
		jwtSecret:      opts.JWTSecret,
		log:            log.Named("web"),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(s.corsMiddleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.sendError(w, r, errs.E(errs.NotFound, "route", "resource not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.sendJSON(w, apiErrorResponse{Error: errs.Validation, Message: "method not allowed"}, http.StatusMethodNotAllowed)
	})

	r.Route("/api", func(r chi.Router) {
		if s.catalog != nil {
			r.Get("/videos", s.handleListVideos)
			r.With(s.requireAuth).Post("/videos", s.handleCreateVideo)
			r.Get("/videos/{id}", s.handleGetVideo)
			r.With(s.requireAuth).Delete("/videos/{id}", s.handleDeleteVideo)
		}
		if s.enquiries != nil {
			r.Post("/quick-enquiry", s.handleQuickEnquiry)
		}
	})

	if s.catalog != nil && s.assets != nil {
		prefix := strings.TrimSuffix(s.catalog.URLPrefix(), "/")
		r.Get(prefix+"/*", s.handleThumbnail)
		r.Head(prefix+"/*", s.handleThumbnail)
	}
	return r
}

// ServeHTTP makes Server usable as an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start serves on lis until ctx is done, then drains in-flight requests.
func (s *Server) Start(ctx context.Context, lis net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(lis)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down web server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// origin reports the externally visible scheme and host of r.
func (s *Server) origin(r *http.Request) catalog.Origin {
	o := catalog.Origin{Scheme: "http", Host: r.Host}
	if r.TLS != nil {
		o.Scheme = "https"
	}
	if !s.trustProxy {
		return o
	}
	if proto := firstValue(r.Header.Get("X-Forwarded-Proto")); proto == "http" || proto == "https" {
		o.Scheme = proto
	}
	if host := firstValue(r.Header.Get("X-Forwarded-Host")); host != "" {
		o.Host = host
	}
	return o
}

// firstValue returns the client-most entry of a comma-separated proxy header.
func firstValue(h string) string {
	v, _, _ := strings.Cut(h, ",")
	return strings.ToLower(strings.TrimSpace(v))
}
