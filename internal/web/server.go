// Package web serves the dashboard: recent draws, pending picks,
// per-issue review detail and aggregated strategy performance.
package web

import (
	"context"
	"html/template"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hklotto/marksix/internal/predict"
	"github.com/hklotto/marksix/models"
)

// Store is the persistence surface the dashboard needs. *database.DB
// satisfies it.
type Store interface {
	predict.Store

	ReviewedRunsForIssue(ctx context.Context, issueNo string) ([]models.PredictionRun, error)
	RecentReviews(ctx context.Context, limit int) ([]models.PredictionRun, error)
	ReviewStats(ctx context.Context) ([]models.ReviewStats, error)
	DrawIssuesDesc(ctx context.Context, limit int) ([]string, error)
}

// Server hosts the dashboard routes.
type Server struct {
	store        Store
	router       *mux.Router
	logger       zerolog.Logger
	recentWindow int
}

// NewServer wires the routes. recentWindow bounds the scoring history
// used when predictions are triggered from the dashboard.
func NewServer(store Store, recentWindow int) *Server {
	s := &Server{
		store:        store,
		router:       mux.NewRouter(),
		logger:       log.With().Str("component", "web").Logger(),
		recentWindow: recentWindow,
	}
	s.router.HandleFunc("/", s.handleHome).Methods(http.MethodGet)
	s.router.HandleFunc("/review", s.handleReview).Methods(http.MethodGet)
	s.router.HandleFunc("/predict", s.handlePredict).Methods(http.MethodPost)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run starts the HTTP server on addr.
func (s *Server) Run(addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	s.logger.Info().Str("addr", addr).Msg("Dashboard listening")
	return srv.ListenAndServe()
}

type pendingView struct {
	Strategy string
	Label    string
	Mains    []models.PredictionPick
	Special  models.PredictionPick
	Pool20   []int
}

type homeView struct {
	LatestDraw  *models.Draw
	RecentDraws []models.Draw
	TargetIssue string
	Pending     []pendingView
	Stats       []models.ReviewStats
	Reviews     []models.PredictionRun
	Labels      map[string]string
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	latest, err := s.store.LatestDraw(ctx)
	if err != nil {
		s.renderError(w, err)
		return
	}
	recent, err := s.store.RecentDraws(ctx, 10)
	if err != nil {
		s.renderError(w, err)
		return
	}

	view := homeView{
		LatestDraw:  latest,
		RecentDraws: recent,
		Labels:      models.StrategyLabels,
	}
	if latest != nil {
		view.TargetIssue = models.NextIssue(latest.IssueNo)
		pending, err := s.store.PendingRunsForIssue(ctx, view.TargetIssue)
		if err != nil {
			s.renderError(w, err)
			return
		}
		for _, run := range pending {
			pv, err := s.pendingView(ctx, run)
			if err != nil {
				s.renderError(w, err)
				return
			}
			view.Pending = append(view.Pending, pv)
		}
	}

	if view.Stats, err = s.store.ReviewStats(ctx); err != nil {
		s.renderError(w, err)
		return
	}
	if view.Reviews, err = s.store.RecentReviews(ctx, 21); err != nil {
		s.renderError(w, err)
		return
	}

	s.render(w, homeTemplate, view)
}

func (s *Server) pendingView(ctx context.Context, run models.PredictionRun) (pendingView, error) {
	pv := pendingView{Strategy: run.Strategy, Label: models.StrategyLabel(run.Strategy)}

	picks, err := s.store.PicksForRun(ctx, run.ID)
	if err != nil {
		return pv, err
	}
	for _, p := range picks {
		if p.PickType == models.PickTypeSpecial {
			pv.Special = p
		} else {
			pv.Mains = append(pv.Mains, p)
		}
	}

	pools, err := s.store.PoolsForRun(ctx, run.ID)
	if err != nil {
		return pv, err
	}
	pv.Pool20 = pools[20]
	return pv, nil
}

type reviewView struct {
	IssueNo string
	Draw    *models.Draw
	Runs    []models.PredictionRun
	Issues  []string
	Labels  map[string]string
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	issues, err := s.store.DrawIssuesDesc(ctx, 50)
	if err != nil {
		s.renderError(w, err)
		return
	}

	issueNo := r.URL.Query().Get("issue")
	if issueNo == "" && len(issues) > 0 {
		issueNo = issues[0]
	}

	view := reviewView{IssueNo: issueNo, Issues: issues, Labels: models.StrategyLabels}
	if issueNo != "" {
		if view.Draw, err = s.store.GetDraw(ctx, issueNo); err != nil {
			s.renderError(w, err)
			return
		}
		if view.Runs, err = s.store.ReviewedRunsForIssue(ctx, issueNo); err != nil {
			s.renderError(w, err)
			return
		}
	}

	s.render(w, reviewTemplate, view)
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	result, err := predict.Generate(r.Context(), s.store, r.FormValue("issue"), s.recentWindow)
	if err != nil {
		s.renderError(w, err)
		return
	}
	s.logger.Info().
		Str("issue", result.TargetIssue).
		Int("generated", len(result.Generated)).
		Msg("Predictions triggered from dashboard")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) render(w http.ResponseWriter, tmpl *template.Template, view any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, view); err != nil {
		s.logger.Error().Err(err).Msg("Template render failed")
	}
}

func (s *Server) renderError(w http.ResponseWriter, err error) {
	s.logger.Error().Err(err).Msg("Request failed")
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
