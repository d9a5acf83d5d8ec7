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

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/akhilrasineni/Risk-Profiling-System/internal/model"
	"github.com/akhilrasineni/Risk-Profiling-System/internal/portfolio"
	"github.com/akhilrasineni/Risk-Profiling-System/internal/scoring"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for assessments and portfolios",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newMux(env),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(context.Background())
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

// newMux builds the API routes. Separated from the serve command so handler
// behavior is testable without a listening socket.
func newMux(env *env) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("POST /assessments", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			QuestionnaireID string            `json:"questionnaire_id"`
			ClientName      string            `json:"client_name"`
			Responses       model.ResponseSet `json:"responses"`
			ClientContext   string            `json:"client_context"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.QuestionnaireID == "" || len(req.Responses) == 0 {
			writeError(w, http.StatusBadRequest, "questionnaire_id and responses are required")
			return
		}

		qn, err := env.Store.GetQuestionnaire(r.Context(), req.QuestionnaireID)
		if err != nil {
			zap.L().Error("load questionnaire", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if qn == nil {
			writeError(w, http.StatusNotFound, "questionnaire not found")
			return
		}

		score, err := scoring.Score(qn.Questions, req.Responses)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		suitability, err := scoring.Classify(qn.Questions, req.Responses)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		confidence := scoring.AggregateConfidence(r.Context(), env.behaviorAnalyzer(), score, scoring.AnalysisInput{
			Category:      suitability.Category,
			Questions:     qn.Questions,
			Responses:     req.Responses,
			ClientContext: req.ClientContext,
			Model:         cfg.Anthropic.Model,
		})

		now := time.Now().UTC()
		a := &model.Assessment{
			ID:              uuid.NewString(),
			ClientName:      req.ClientName,
			QuestionnaireID: qn.ID,
			Responses:       req.Responses,
			Score:           score,
			Suitability:     suitability,
			Confidence:      confidence,
			Status:          model.AssessmentScored,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := env.Store.CreateAssessment(r.Context(), a); err != nil {
			zap.L().Error("save assessment", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusCreated, a)
	})

	mux.HandleFunc("GET /assessments/{id}", func(w http.ResponseWriter, r *http.Request) {
		a, err := env.Store.GetAssessment(r.Context(), r.PathValue("id"))
		if err != nil {
			zap.L().Error("load assessment", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if a == nil {
			writeError(w, http.StatusNotFound, "assessment not found")
			return
		}
		writeJSON(w, http.StatusOK, a)
	})

	mux.HandleFunc("POST /assessments/{id}/override", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Category string `json:"category"`
			Reason   string `json:"reason"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		a, err := env.Store.GetAssessment(r.Context(), r.PathValue("id"))
		if err != nil {
			zap.L().Error("load assessment", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if a == nil {
			writeError(w, http.StatusNotFound, "assessment not found")
			return
		}
		if a.Status == model.AssessmentRejected {
			writeError(w, http.StatusConflict, "assessment is rejected")
			return
		}

		if err := scoring.ApplyOverride(&a.Suitability, model.RiskCategory(req.Category), req.Reason); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		a.UpdatedAt = time.Now().UTC()
		if err := env.Store.UpdateAssessment(r.Context(), a); err != nil {
			zap.L().Error("save assessment", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, a)
	})

	mux.HandleFunc("GET /portfolios/{id}", func(w http.ResponseWriter, r *http.Request) {
		p, err := env.Store.GetPortfolio(r.Context(), r.PathValue("id"))
		if err != nil {
			zap.L().Error("load portfolio", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if p == nil {
			writeError(w, http.StatusNotFound, "portfolio not found")
			return
		}
		writeJSON(w, http.StatusOK, p)
	})

	mux.HandleFunc("POST /portfolios/{id}/rebalance", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Holdings []struct {
				SecurityID string  `json:"security_id"`
				Percent    float64 `json:"percent"`
			} `json:"holdings"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		p, err := env.Store.GetPortfolio(r.Context(), r.PathValue("id"))
		if err != nil {
			zap.L().Error("load portfolio", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if p == nil {
			writeError(w, http.StatusNotFound, "portfolio not found")
			return
		}

		proposed := make([]model.Holding, 0, len(req.Holdings))
		totalPercent := 0.0
		for _, h := range req.Holdings {
			proposed = append(proposed, model.Holding{SecurityID: h.SecurityID, Percent: h.Percent})
			totalPercent += h.Percent
		}
		newCash := p.TotalValue * (100 - totalPercent) / 100

		if err := env.Engine.Rebalance(r.Context(), p, proposed, newCash); err != nil {
			var verr *portfolio.ValidationError
			if errors.As(err, &verr) {
				writeError(w, http.StatusUnprocessableEntity, verr.Error())
				return
			}
			zap.L().Error("rebalance", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		p.UpdatedAt = time.Now().UTC()
		if err := env.Store.UpdatePortfolio(r.Context(), p); err != nil {
			zap.L().Error("save portfolio", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, p)
	})

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
