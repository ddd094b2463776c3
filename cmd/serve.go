package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/landcover-cli/internal/ceo"
	"github.com/sells-group/landcover-cli/internal/geodesy"
	"github.com/sells-group/landcover-cli/internal/photos"
	"github.com/sells-group/landcover-cli/internal/resilience"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the agreement and photo lookup API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		svc, err := newService(ctx, env, true)
		if err != nil {
			return err
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr: fmt.Sprintf(":%d", port),
			Handler: buildRouter(svc, routerOptions{
				RequestTimeout: cfg.Server.RequestTimeout(),
				AllowedOrigins: cfg.Server.AllowedOrigins,
			}),
			ReadHeaderTimeout: 10 * time.Second,
		}

		if cfg.Monitoring.Enabled {
			go newChecker(env.Store).Run(ctx)
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

type routerOptions struct {
	RequestTimeout time.Duration
	AllowedOrigins []string
}

// buildRouter mounts the read-only API over svc.
func buildRouter(svc *service, opts routerOptions) http.Handler {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 2 * time.Minute
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))
	r.Use(middleware.Timeout(opts.RequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/aois", func(w http.ResponseWriter, _ *http.Request) {
		out, err := listAOIs(svc)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSONResponse(w, http.StatusOK, out)
	})

	r.Route("/aois/{aoi}", func(r chi.Router) {
		r.Get("/summary", func(w http.ResponseWriter, req *http.Request) {
			s, err := svc.Summary(chi.URLParam(req, "aoi"))
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSONResponse(w, http.StatusOK, s)
		})

		r.Get("/agreement", func(w http.ResponseWriter, req *http.Request) {
			res, err := svc.Agreement(req.Context(), chi.URLParam(req, "aoi"), req.URL.Query().Get("plot"))
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSONResponse(w, http.StatusOK, res)
		})

		r.Get("/plots/{plot}/grid", func(w http.ResponseWriter, req *http.Request) {
			g, err := svc.Grid(req.Context(), chi.URLParam(req, "aoi"), chi.URLParam(req, "plot"))
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSONResponse(w, http.StatusOK, g)
		})

		r.Get("/plots/{plot}/photos", func(w http.ResponseWriter, req *http.Request) {
			res, err := svc.Photos(chi.URLParam(req, "aoi"), chi.URLParam(req, "plot"))
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSONResponse(w, http.StatusOK, res)
		})

		r.Get("/export/{kind}", func(w http.ResponseWriter, req *http.Request) {
			kind, err := ceo.ParseKind(chi.URLParam(req, "kind"))
			if err != nil {
				writeJSONResponse(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
				return
			}
			t, name, err := svc.Export(kind, chi.URLParam(req, "aoi"))
			if err != nil {
				writeError(w, err)
				return
			}
			w.Header().Set("Content-Type", "text/csv; charset=utf-8")
			w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
			if err := ceo.ExportCSV(w, t); err != nil {
				zap.L().Error("export write failed", zap.String("file", name), zap.Error(err))
			}
		})
	})

	return r
}

// requestLogger logs one line per request through the global zap logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSONResponse(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorStatus maps domain errors onto HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, errUnknownAOI), errors.Is(err, photos.ErrPlotNotFound):
		return http.StatusNotFound
	case errors.Is(err, geodesy.ErrInvalidLatitude):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case resilience.IsTransient(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError {
		zap.L().Error("request failed", zap.Int("status", status), zap.Error(err))
	}
	writeJSONResponse(w, status, map[string]string{"error": err.Error()})
}
