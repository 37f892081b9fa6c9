package articles

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// APIServer serves the article store over HTTP.
type APIServer struct {
	store *Store
}

// NewAPIServer creates a new article API server.
func NewAPIServer(store *Store) *APIServer {
	return &APIServer{
		store: store,
	}
}

// SetupRouter configures the Gin router with all article API routes.
func (s *APIServer) SetupRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	api := router.Group("/api/v1")
	api.GET("/articles", s.HandleListArticles)
	api.GET("/articles/latest-unprocessed", s.HandleLatestUnprocessed)
	api.GET("/articles/lookup", s.HandleLookup)
	api.GET("/articles/:id", s.HandleGetArticle)
	api.POST("/articles", s.HandleCreateArticle)

	return router
}

// ListArticlesResponse represents the response for GET /api/v1/articles.
type ListArticlesResponse struct {
	Articles []Article `json:"articles"`
	Total    int       `json:"total"`
}

// errorResponse creates a standardized error response.
func errorResponse(code, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}

// handleError maps domain errors to HTTP responses.
func (s *APIServer) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse("not_found", err.Error()))
	case errors.Is(err, ErrDuplicate):
		c.JSON(http.StatusConflict, errorResponse("conflict", err.Error()))
	case errors.Is(err, ErrValidation):
		c.JSON(http.StatusBadRequest, errorResponse("validation_error", err.Error()))
	default:
		c.JSON(http.StatusInternalServerError, errorResponse("internal_error", "Failed to process request"))
	}
}

// HandleListArticles handles GET /api/v1/articles.
func (s *APIServer) HandleListArticles(c *gin.Context) {
	filter := ArticleFilter{}

	if kind := c.Query("kind"); kind != "" {
		filter.Kind = &kind
	}
	if processedParam := c.Query("processed"); processedParam != "" {
		processed, err := strconv.ParseBool(processedParam)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("bad_request", "processed must be a boolean"))
			return
		}
		filter.Processed = &processed
	}
	if limitParam := c.Query("limit"); limitParam != "" {
		limit, err := strconv.Atoi(limitParam)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, errorResponse("bad_request", "limit must be a non-negative integer"))
			return
		}
		filter.Limit = limit
	}

	articles, err := s.store.List(filter)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, ListArticlesResponse{
		Articles: articles,
		Total:    len(articles),
	})
}

// HandleLatestUnprocessed handles GET /api/v1/articles/latest-unprocessed.
func (s *APIServer) HandleLatestUnprocessed(c *gin.Context) {
	article, err := s.store.LatestUnprocessed()
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, article)
}

// HandleLookup handles GET /api/v1/articles/lookup?source_url=.
func (s *APIServer) HandleLookup(c *gin.Context) {
	sourceURL := c.Query("source_url")
	if sourceURL == "" {
		c.JSON(http.StatusBadRequest, errorResponse("bad_request", "source_url is required"))
		return
	}

	article, err := s.store.LookupBySourceURL(sourceURL)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, article)
}

// HandleGetArticle handles GET /api/v1/articles/{id}.
func (s *APIServer) HandleGetArticle(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("bad_request", "Invalid article ID"))
		return
	}

	article, err := s.store.Get(id)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, article)
}

// HandleCreateArticle handles POST /api/v1/articles.
func (s *APIServer) HandleCreateArticle(c *gin.Context) {
	var req CreateRequest

	// Bind JSON -- Gin validates required fields automatically
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("validation_error", err.Error()))
		return
	}

	article, err := s.store.Create(req)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, article)
}
