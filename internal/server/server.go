package server

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/nao1215/contactscan/internal/model"
	"github.com/nao1215/contactscan/internal/sheet"
)

// DefaultMaxUploadSize limits the size of an uploaded spreadsheet.
const DefaultMaxUploadSize int64 = 32 << 20

//go:embed upload.html
var uploadPage []byte

// TableProcessor crawls the URL column of a table and appends emails.
type TableProcessor interface {
	ProcessTable(ctx context.Context, t *sheet.Table) ([]model.CrawlResult, error)
}

// ResultSaver stores the results of one processed upload.
type ResultSaver interface {
	SaveRun(ctx context.Context, results []model.CrawlResult) (string, error)
}

// Server is the HTTP front end for spreadsheet processing.
type Server struct {
	router        *chi.Mux
	processor     TableProcessor
	saver         ResultSaver
	logger        *slog.Logger
	maxUploadSize int64
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithResultSaver records every processed upload.
func WithResultSaver(saver ResultSaver) Option {
	return func(s *Server) {
		s.saver = saver
	}
}

// WithMaxUploadSize limits the accepted request body size.
func WithMaxUploadSize(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadSize = n
		}
	}
}

// New creates a Server that hands uploaded tables to processor.
func New(processor TableProcessor, opts ...Option) *Server {
	s := &Server{
		router:        chi.NewRouter(),
		processor:     processor,
		maxUploadSize: DefaultMaxUploadSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.logRequests)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition", "X-Upload-ID", "X-Run-ID"},
		MaxAge:         300,
	}))

	s.router.Get("/", s.handleIndex)
	s.router.Get("/healthz", s.handleHealth)
	s.router.Post("/process", s.handleProcess)
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down server: %w", err)
		}
		return nil
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(uploadPage)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	uploadID := uuid.NewString()
	logger := s.logger.With("upload_id", uploadID)

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		logger.Warn("no file uploaded", "error", err)
		respondError(w, http.StatusBadRequest, "Invalid file type. Please upload an Excel or CSV file.")
		return
	}
	defer file.Close()

	filename := header.Filename
	format, err := sheet.FormatOf(filename)
	if err != nil {
		logger.Warn("rejected upload", "filename", filename, "error", err)
		respondError(w, http.StatusBadRequest, "Invalid file type. Please upload an Excel or CSV file.")
		return
	}

	table, err := sheet.Read(filename, file)
	if err != nil {
		logger.Error("failed to read upload", "filename", filename, "error", err)
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("An error occurred: %v", err))
		return
	}

	if _, err := sheet.FindURLColumn(table.Headers); err != nil {
		logger.Warn("no url column", "filename", filename, "headers", table.Headers)
		respondError(w, http.StatusBadRequest, "No column found that likely contains URLs.")
		return
	}

	logger.Info("processing upload", "filename", filename, "rows", table.Len())

	results, err := s.processor.ProcessTable(r.Context(), table)
	if err != nil {
		logger.Error("failed to process upload", "filename", filename, "error", err)
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("An error occurred: %v", err))
		return
	}

	var buf bytes.Buffer
	if err := sheet.Write(filename, &buf, table); err != nil {
		logger.Error("failed to write result", "filename", filename, "error", err)
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("An error occurred: %v", err))
		return
	}

	if s.saver != nil && len(results) > 0 {
		runID, err := s.saver.SaveRun(r.Context(), results)
		if err != nil {
			logger.Warn("failed to save results", "error", err)
		} else {
			w.Header().Set("X-Run-ID", runID)
		}
	}

	logger.Info("sending file", "filename", filename, "sites", len(results))

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("X-Upload-ID", uploadID)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(message))
}
