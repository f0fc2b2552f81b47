// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pdiddy/librarian/internal/session"
)

type handler struct{}

// RegisterRoutes mounts the read-only routes on read and the rest on write.
func (h *handler) RegisterRoutes(read, write *gin.RouterGroup) {
	read.GET("/state", h.state)
	read.GET("/history", h.history)

	write.GET("/search", h.search)
	write.POST("/select/:index", h.selectResult)
	write.DELETE("/playground", h.clearPlayground)
	write.POST("/chat", h.chat)
	write.DELETE("/chat", h.resetChat)
	write.DELETE("/history", h.clearHistory)
	write.DELETE("/history/:query", h.removeHistory)
}

// applyResponse reports whether a search or chat turn was applied or
// superseded, together with the session state.
type applyResponse struct {
	Applied bool          `json:"applied"`
	State   session.State `json:"state"`
}

type selectResponse struct {
	Opened bool          `json:"opened"`
	State  session.State `json:"state"`
}

type chatRequest struct {
	Message string `json:"message" binding:"required"`
}

func (h *handler) state(c *gin.Context) {
	st, err := currentState(c)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *handler) search(c *gin.Context) {
	res, err := mustGetLoop(c).Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, applyResponse{Applied: res.Applied, State: res.State})
}

func (h *handler) selectResult(c *gin.Context) {
	i, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "index must be an integer"})
		return
	}
	opened, st, err := mustGetLoop(c).Select(c.Request.Context(), i)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, selectResponse{Opened: opened, State: st})
}

func (h *handler) clearPlayground(c *gin.Context) {
	st, err := mustGetLoop(c).ClearPlayground(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *handler) chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	res, err := mustGetLoop(c).Chat(c.Request.Context(), req.Message)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, applyResponse{Applied: res.Applied, State: res.State})
}

func (h *handler) resetChat(c *gin.Context) {
	st, err := mustGetLoop(c).ResetChat(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *handler) history(c *gin.Context) {
	st, err := currentState(c)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": st.History})
}

func (h *handler) clearHistory(c *gin.Context) {
	st, err := mustGetLoop(c).ClearHistory(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": st.History})
}

func (h *handler) removeHistory(c *gin.Context) {
	st, err := mustGetLoop(c).RemoveHistory(c.Request.Context(), c.Param("query"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": st.History})
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, session.ErrEmptyQuery):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, session.ErrNoSuchResult):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, session.ErrClosed):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "server is shutting down"})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusRequestTimeout, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
