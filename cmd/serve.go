package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leads-cli/internal/config"
	"github.com/sells-group/leads-cli/internal/dedup"
	"github.com/sells-group/leads-cli/internal/leads"
	"github.com/sells-group/leads-cli/internal/model"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for duplicate scans and merges",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		sourceName, _ := cmd.Flags().GetString("source")
		svc, st, err := initService(ctx, sourceName)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(svc, cfg.Dedup),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().String("source", "store", "record source: store, airtable, salesforce")
	rootCmd.AddCommand(serveCmd)
}

// newRouter builds the API router. Detection defaults come from config
// and can be overridden per request via query parameters.
func newRouter(svc *leads.Service, defaults config.DedupConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/leads", func(r chi.Router) {
		r.Get("/duplicates", func(w http.ResponseWriter, req *http.Request) {
			opts := leads.ScanOptions{
				Mode:      defaults.Mode,
				Threshold: defaults.Threshold,
				MaxLeads:  defaults.MaxLeads,
			}
			q := req.URL.Query()
			if mode := q.Get("mode"); mode != "" {
				opts.Mode = mode
			}
			if raw := q.Get("threshold"); raw != "" {
				t, err := strconv.ParseFloat(raw, 64)
				if err != nil || t < 0 || t > 1 {
					writeError(w, http.StatusBadRequest, "threshold must be a number between 0 and 1")
					return
				}
				opts.Threshold = t
			}

			// With lead_id the response narrows to that lead's group members.
			if leadID := q.Get("lead_id"); leadID != "" {
				dups, err := svc.DuplicatesForLead(req.Context(), leadID, opts.Threshold)
				if err != nil {
					zap.L().Error("duplicate lookup failed", zap.String("lead", leadID), zap.Error(err))
					writeError(w, http.StatusInternalServerError, "lookup failed")
					return
				}
				if dups == nil {
					dups = []model.Lead{}
				}
				writeJSON(w, http.StatusOK, map[string]any{"duplicates": dups})
				return
			}

			set, err := svc.ScanDuplicates(req.Context(), opts)
			if err != nil {
				zap.L().Error("duplicate scan failed", zap.Error(err))
				writeError(w, http.StatusInternalServerError, "scan failed")
				return
			}
			writeJSON(w, http.StatusOK, set)
		})

		r.Get("/check-duplicates", func(w http.ResponseWriter, req *http.Request) {
			q := req.URL.Query()
			query := dedup.Query{Name: q.Get("name"), Phone: q.Get("phone")}
			if query.Name == "" && query.Phone == "" {
				writeError(w, http.StatusBadRequest, "name or phone is required")
				return
			}

			matches, err := svc.CheckDuplicates(req.Context(), query)
			if err != nil {
				zap.L().Error("duplicate check failed", zap.Error(err))
				writeError(w, http.StatusInternalServerError, "check failed")
				return
			}
			if matches == nil {
				matches = []dedup.MatchResult{}
			}
			writeJSON(w, http.StatusOK, map[string]any{"matches": matches})
		})

		r.Post("/merge/preview", func(w http.ResponseWriter, req *http.Request) {
			var body leads.MergeRequest
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
			if body.MasterID == "" || len(body.DuplicateIDs) == 0 {
				writeError(w, http.StatusBadRequest, "master_id and duplicate_ids are required")
				return
			}

			preview, err := svc.PreviewMerge(req.Context(), body.MasterID, body.DuplicateIDs)
			if err != nil {
				writeError(w, http.StatusUnprocessableEntity, eris.Cause(err).Error())
				return
			}
			writeJSON(w, http.StatusOK, preview)
		})

		r.Post("/merge", func(w http.ResponseWriter, req *http.Request) {
			var body leads.MergeRequest
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
			if body.MasterID == "" || len(body.DuplicateIDs) == 0 {
				writeError(w, http.StatusBadRequest, "master_id and duplicate_ids are required")
				return
			}

			result, err := svc.Merge(req.Context(), body)
			if err != nil {
				zap.L().Error("merge failed",
					zap.String("master", body.MasterID),
					zap.Error(err),
				)
				writeError(w, http.StatusUnprocessableEntity, eris.Cause(err).Error())
				return
			}
			writeJSON(w, http.StatusOK, result)
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
