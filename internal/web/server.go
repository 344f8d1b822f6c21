// Package web serves the exploration pages and the prediction form over HTTP.
package web

import (
	"bytes"
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/YuminosukeSato/bodyperf/dataset"
	"github.com/YuminosukeSato/bodyperf/pipeline"
	"github.com/YuminosukeSato/bodyperf/pkg/errors"
	"github.com/YuminosukeSato/bodyperf/pkg/log"
	"github.com/YuminosukeSato/bodyperf/plotting"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

// Server holds the handlers' dependencies.
type Server struct {
	session *pipeline.Session
	logger  log.Logger
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(session *pipeline.Session) *gin.Engine {
	s := &Server{
		session: session,
		logger:  log.GetLoggerWithName("web"),
	}

	r := gin.New()
	r.Use(s.requestLogger(), s.recovery())
	r.SetHTMLTemplate(indexTemplate)

	r.GET("/", s.index)

	api := r.Group("/api")
	api.GET("/data", s.data)
	api.GET("/eda", s.eda)
	api.GET("/eda/heatmap.png", s.heatmap)
	api.GET("/evaluation", s.evaluation)
	api.POST("/predict", s.predict)
	api.POST("/refresh", s.refresh)

	return r
}

// Serve runs the router on addr until ctx is canceled.
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "listen")
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(log.RequestIDKey, id)
		c.Header(requestIDHeader, id)

		start := time.Now()
		c.Next()

		s.logger.Info("HTTP request",
			log.RequestIDKey, id,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			log.DurationMsKey, time.Since(start).Milliseconds(),
		)
	}
}

func (s *Server) recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, rec any) {
		err := errors.NewPanicError(c.FullPath(), rec)
		s.logger.Error("Panic recovered", err, log.RequestIDKey, c.GetString(log.RequestIDKey))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	})
}

// fail maps err to a status code and writes it as JSON.
func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	body := gin.H{"error": err.Error()}

	var ve *errors.ValidationError
	switch {
	case errors.As(err, &ve):
		status = http.StatusBadRequest
		body["field"] = ve.ParamName
	case errors.IsFatal(err), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", err, log.RequestIDKey, c.GetString(log.RequestIDKey))
	}
	c.AbortWithStatusJSON(status, body)
}

func (s *Server) index(c *gin.Context) {
	in := pipeline.DefaultInput()
	c.HTML(http.StatusOK, "index", gin.H{
		"Fields":  formFields(in),
		"Genders": pipeline.Genders,
		"Gender":  in.Gender,
	})
}

func (s *Server) data(c *gin.Context) {
	limit := 0
	if q := c.Query("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 0 {
			s.fail(c, errors.NewValidationError("limit", "must be a non-negative integer", q))
			return
		}
		limit = n
	}

	tbl, err := s.session.Data(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	rows, cols := tbl.Shape()
	c.JSON(http.StatusOK, gin.H{
		"shape":  []int{rows, cols},
		"header": tbl.Header,
		"rows":   tbl.Head(limit),
	})
}

func (s *Server) eda(c *gin.Context) {
	tbl, err := s.session.Data(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}

	rows, cols := tbl.Shape()
	corr := dataset.Correlation(tbl)
	c.JSON(http.StatusOK, gin.H{
		"shape":    []int{rows, cols},
		"describe": describeJSON(dataset.Describe(tbl)),
		"correlation": gin.H{
			"columns": corr.Columns,
			"values":  matrixJSON(corr.Rows()),
		},
	})
}

func (s *Server) heatmap(c *gin.Context) {
	tbl, err := s.session.Data(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	var buf bytes.Buffer
	if err := plotting.Heatmap(dataset.Correlation(tbl), &buf); err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

func (s *Server) evaluation(c *gin.Context) {
	art, err := s.session.Artifacts(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	ev, err := art.Evaluate()
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"estimator_id":     art.ID,
		"trained_at":       art.TrainedAt,
		"accuracy":         ev.Accuracy,
		"report":           ev.Text,
		"classes":          ev.Report.Classes,
		"macro_avg":        ev.Report.MacroAvg,
		"weighted_avg":     ev.Report.WeightedAvg,
		"labels":           ev.Labels,
		"confusion_matrix": ev.ConfusionMatrix,
	})
}

func (s *Server) predict(c *gin.Context) {
	in := pipeline.DefaultInput()
	if err := c.ShouldBind(&in); err != nil {
		s.fail(c, errors.NewValidationError("body", err.Error(), nil))
		return
	}
	if err := in.Validate(); err != nil {
		s.fail(c, err)
		return
	}

	art, err := s.session.Artifacts(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	label, err := art.Predict(in)
	if err != nil {
		s.fail(c, err)
		return
	}
	probs, err := art.PredictProba(in)
	if err != nil {
		s.fail(c, err)
		return
	}

	s.logger.Debug("Prediction served",
		log.RequestIDKey, c.GetString(log.RequestIDKey),
		log.EstimatorIDKey, art.ID,
		log.PredictionKey, label,
	)
	c.JSON(http.StatusOK, gin.H{
		"performance":   label,
		"probabilities": probs,
		"estimator_id":  art.ID,
	})
}

func (s *Server) refresh(c *gin.Context) {
	changed, err := s.session.Refresh(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"changed": changed})
}

// nullable turns NaN into JSON null; encoding/json rejects NaN.
func nullable(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

func describeJSON(summaries []dataset.Summary) []gin.H {
	out := make([]gin.H, len(summaries))
	for i, s := range summaries {
		out[i] = gin.H{
			"column": s.Column,
			"count":  s.Count,
			"mean":   nullable(s.Mean),
			"std":    nullable(s.Std),
			"min":    nullable(s.Min),
			"25%":    nullable(s.Q25),
			"50%":    nullable(s.Q50),
			"75%":    nullable(s.Q75),
			"max":    nullable(s.Max),
		}
	}
	return out
}

func matrixJSON(rows [][]float64) [][]any {
	out := make([][]any, len(rows))
	for i, row := range rows {
		out[i] = make([]any, len(row))
		for j, v := range row {
			out[i][j] = nullable(v)
		}
	}
	return out
}
