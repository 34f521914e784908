package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/psds-microservice/helpdesk-service/internal/knowledge"
	"github.com/psds-microservice/helpdesk-service/internal/model"
	"github.com/psds-microservice/helpdesk-service/internal/store"
)

type KnowledgeHandler struct {
	store *store.Store
}

func NewKnowledgeHandler(s *store.Store) *KnowledgeHandler {
	return &KnowledgeHandler{store: s}
}

type articleView struct {
	model.KnowledgeArticle
	SolutionHTML string `json:"solutionHtml"`
}

func viewArticle(a model.KnowledgeArticle) articleView {
	html, err := knowledge.RenderSolution(a.Solution)
	if err != nil {
		slog.Warn("render solution", "component", "knowledge", "article_id", a.ID, "error", err)
	}
	return articleView{KnowledgeArticle: a, SolutionHTML: html}
}

// List returns the knowledge base, filtered by ?q= when given.
func (h *KnowledgeHandler) List(c *gin.Context) {
	articles, err := h.store.Articles(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	articles = knowledge.Filter(articles, c.Query("q"))
	out := make([]articleView, 0, len(articles))
	for _, a := range articles {
		out = append(out, viewArticle(a))
	}
	c.JSON(http.StatusOK, gin.H{"articles": out})
}

func (h *KnowledgeHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	a, err := h.store.Article(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewArticle(*a))
}

type articleRequest struct {
	Title    string   `json:"title" binding:"required"`
	Category string   `json:"category"`
	Solution string   `json:"solution" binding:"required"`
	Keywords []string `json:"keywords"`
}

func (r articleRequest) article() model.KnowledgeArticle {
	return model.KnowledgeArticle{Title: r.Title, Category: r.Category, Solution: r.Solution, Keywords: r.Keywords}
}

func (h *KnowledgeHandler) Create(c *gin.Context) {
	var req articleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title and solution are required"})
		return
	}
	a, err := h.store.CreateArticle(c.Request.Context(), req.article())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, viewArticle(*a))
}

func (h *KnowledgeHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req articleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title and solution are required"})
		return
	}
	a, err := h.store.UpdateArticle(c.Request.Context(), id, req.article())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewArticle(*a))
}

func (h *KnowledgeHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.store.DeleteArticle(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
