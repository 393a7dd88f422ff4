// Package server exposes a Classifier over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/cognicore/lica/pkg/lica"
	"github.com/cognicore/lica/pkg/lica/internalerr"
	"github.com/cognicore/lica/pkg/lica/personalize"
	"github.com/cognicore/lica/pkg/lica/taxonomy"
)

// Server serves classification and personalization requests. The classifier
// can be swapped while requests are in flight.
type Server struct {
	echo    *echo.Echo
	current atomic.Pointer[lica.Classifier]
	profile personalize.Profile
	log     zerolog.Logger
}

type classifyResponse struct {
	Category taxonomy.CategoryPair `json:"category"`
	Step     lica.Step             `json:"step"`
	Matched  []string              `json:"matched,omitempty"`
}

type personalizeResponse struct {
	Decisions []personalize.Decision `json:"decisions"`
}

// New creates a server around c
func New(c *lica.Classifier, profile personalize.Profile, log zerolog.Logger) *Server {
	s := &Server{
		echo:    echo.New(),
		profile: profile,
		log:     log,
	}
	s.current.Store(c)

	s.echo.JSONSerializer = rawJSONSerializer{}
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			s.log.Debug().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	}))

	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/classify", s.handleClassify)
	s.echo.POST("/personalize", s.handlePersonalize)

	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Classifier returns the classifier currently serving requests
func (s *Server) Classifier() *lica.Classifier {
	return s.current.Load()
}

// Swap replaces the active classifier. Requests already holding the old one
// finish against it.
func (s *Server) Swap(c *lica.Classifier) {
	s.current.Store(c)
}

// Start listens on addr until Shutdown.
func (s *Server) Start(addr string) error {
	s.log.Info().Str("listen", addr).Msg("server starting")
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// rawJSONSerializer writes JSON without HTML escaping so category names such
// as "hobbies & interests" reach clients verbatim.
type rawJSONSerializer struct {
	echo.DefaultJSONSerializer
}

func (rawJSONSerializer) Serialize(c echo.Context, i interface{}, indent string) error {
	enc := json.NewEncoder(c.Response())
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(i)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleClassify(c echo.Context) error {
	res, err := s.Classifier().Explain(c.QueryParam("url"), c.QueryParam("title"))
	switch {
	case errors.Is(err, internalerr.ErrNoInput):
		return echo.NewHTTPError(http.StatusBadRequest, "url or title is required")
	case errors.Is(err, internalerr.ErrUnparseableURL):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case err != nil:
		s.log.Error().Err(err).Msg("classify failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "classification failed")
	}

	return c.JSON(http.StatusOK, classifyResponse{
		Category: res.Category,
		Step:     res.Step,
		Matched:  res.Matched,
	})
}

func (s *Server) handlePersonalize(c echo.Context) error {
	p := &personalize.Personalizer{
		Classifier: s.Classifier(),
		Profile:    s.profile,
	}

	decisions, err := p.Plan(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return c.JSON(http.StatusOK, personalizeResponse{Decisions: decisions})
}
