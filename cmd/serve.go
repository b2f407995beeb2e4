package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/reelindex/catalog-trust/internal/audit"
	"github.com/reelindex/catalog-trust/internal/consensus"
	"github.com/reelindex/catalog-trust/internal/engine"
	"github.com/reelindex/catalog-trust/internal/scorer"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start an HTTP server that triggers scoring runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		reg, err := loadRegistry()
		if err != nil {
			return err
		}
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "serve: migrate")
		}

		eng := engine.New(st,
			scorer.NewComposer(cfg.Scorer, reg),
			consensus.NewDeriver(cfg.Consensus, reg),
			nil, cfg.Engine, cfg.Audit.Dir)

		mux := http.NewServeMux()

		mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
		})

		mux.HandleFunc("POST /runs", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				DryRun  bool   `json:"dry_run"`
				Limit   int    `json:"limit"`
				Genre   string `json:"genre"`
				Decade  int    `json:"decade"`
				Rescore bool   `json:"rescore"`
			}
			if r.Body != nil && r.ContentLength != 0 {
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
					return
				}
			}

			opts := engine.Options{
				DryRun:  req.DryRun,
				Limit:   req.Limit,
				Genre:   req.Genre,
				Decade:  req.Decade,
				Rescore: req.Rescore,
			}

			// Runs take minutes on a large catalog; respond immediately
			// and let the run finish in the background.
			go func() {
				res, err := eng.Run(ctx, opts)
				if err != nil {
					zap.L().Error("triggered run failed", zap.Error(err))
					return
				}
				zap.L().Info("triggered run complete",
					zap.String("run_id", res.RunID),
					zap.Int("subjects", res.Subjects),
					zap.Int("scored", res.Summary.Scored),
				)
			}()

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusAccepted)
			json.NewEncoder(w).Encode(map[string]string{"status": "accepted"})
		})

		mux.HandleFunc("GET /reports/latest", func(w http.ResponseWriter, r *http.Request) {
			path, err := audit.LatestJSON(cfg.Audit.Dir)
			if err != nil {
				http.Error(w, `{"error":"no reports available"}`, http.StatusNotFound)
				return
			}
			report, err := audit.LoadJSON(path)
			if err != nil {
				http.Error(w, `{"error":"report unreadable"}`, http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(report)
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		}

		// Graceful shutdown. The signal context is already canceled here,
		// so drain on a fresh one with its own deadline.
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
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
	rootCmd.AddCommand(serveCmd)
}
