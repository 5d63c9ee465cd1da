package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"chats/internal/common"
	"chats/internal/models"
	"chats/internal/service"
)

type Handler struct {
	Sweeper *service.Sweeper
	Service *service.MessageService
}

func NewAPIHandler(sweeper *service.Sweeper, service *service.MessageService) *Handler {
	return &Handler{
		Sweeper: sweeper,
		Service: service,
	}
}

type createChatRequest struct {
	Username string   `json:"username" form:"username" example:"alice"`
	Text     string   `json:"text" form:"text" example:"hello"`
	Timeout  *float64 `json:"timeout" form:"timeout" example:"60"`
}

type createChatResponse struct {
	ID string `json:"id" example:"1b9d6bcd-bbfd-4b2d-9b5d-ab8dfbbd4bed"`
}

type errorResponse struct {
	Error string `json:"error" example:"No chat found for chat id"`
}

// CreateChat stores a message for a username
// @Summary Post a message
// @Tags chats
// @Accept json
// @Produce json
// @Param request body createChatRequest true "recipient, text and optional timeout in seconds"
// @Success 200 {object} createChatResponse
// @Failure 400 {object} errorResponse
// @Failure 500 {object} errorResponse
// @Router /chats [post]
func (h *Handler) CreateChat(c *gin.Context) {
	var req createChatRequest
	if err := c.ShouldBind(&req); err != nil && !errors.Is(err, io.EOF) {
		_ = c.Error(common.Validation("Invalid request body: " + err.Error()))
		return
	}

	id, err := h.Service.CreateMessage(c.Request.Context(), service.CreateMessageInput{
		Username: req.Username,
		Text:     req.Text,
		Timeout:  req.Timeout,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, createChatResponse{ID: id})
}

// GetChatByID returns a message even after it has expired
// @Summary Get a message by id
// @Tags chats
// @Produce json
// @Param id path string true "message id"
// @Success 200 {object} models.MessageDetail
// @Failure 404 {object} errorResponse
// @Router /chats/id/{id} [get]
func (h *Handler) GetChatByID(c *gin.Context) {
	h.respondChat(c, c.Param("id"))
}

// ListChatsForUser returns unexpired messages and marks them expired
// @Summary List and consume a user's messages
// @Tags chats
// @Produce json
// @Param username path string true "recipient username"
// @Success 200 {array} models.MessageSummary
// @Failure 404 {object} errorResponse
// @Router /chats/user/{username} [get]
func (h *Handler) ListChatsForUser(c *gin.Context) {
	h.respondChatsForUser(c, c.Param("username"))
}

// GetChats dispatches on the id or username query parameter; id wins
// @Summary Query messages by id or username
// @Tags chats
// @Produce json
// @Param id query string false "message id"
// @Param username query string false "recipient username"
// @Success 200 {object} models.MessageDetail
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /chats [get]
func (h *Handler) GetChats(c *gin.Context) {
	if c.Query("id") != "" {
		if len(c.QueryArray("id")) > 1 {
			_ = c.Error(common.Validation(`"id" must be string`))
			return
		}
		h.respondChat(c, c.Query("id"))
		return
	}
	if c.Query("username") != "" {
		if len(c.QueryArray("username")) > 1 {
			_ = c.Error(common.Validation(`"username" must be string`))
			return
		}
		h.respondChatsForUser(c, c.Query("username"))
		return
	}
	_ = c.Error(common.Validation("Please provide a chat id or a username"))
}

func (h *Handler) respondChat(c *gin.Context, id string) {
	detail, err := h.Service.GetMessageByID(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *Handler) respondChatsForUser(c *gin.Context, username string) {
	chats, err := h.Service.ListMessagesForUsername(c.Request.Context(), username)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if chats == nil {
		chats = []models.MessageSummary{}
	}
	c.JSON(http.StatusOK, chats)
}

// StartSweeper starts purging long-expired messages
// @Summary Start the retention sweeper
// @Tags admin
// @Success 200 {object} map[string]string
// @Failure 409 {object} errorResponse
// @Router /api/v1/sweeper/start [post]
func (h *Handler) StartSweeper(c *gin.Context) {
	if h.Sweeper.IsRunning() {
		c.JSON(http.StatusOK, gin.H{"message": "Sweeper already running"})
		return
	}
	if err := h.Sweeper.Start(); err != nil {
		if errors.Is(err, service.ErrRetentionDisabled) {
			_ = c.Error(common.NewAPIError("Retention is disabled; set RETENTION to enable the sweeper", http.StatusConflict))
			return
		}
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Sweeper started"})
}

// StopSweeper stops the purge loop and waits for a running sweep
// @Summary Stop the retention sweeper
// @Tags admin
// @Success 200 {object} map[string]string
// @Router /api/v1/sweeper/stop [post]
func (h *Handler) StopSweeper(c *gin.Context) {
	if !h.Sweeper.IsRunning() {
		c.JSON(http.StatusOK, gin.H{"message": "Sweeper already stopped"})
		return
	}
	_ = h.Sweeper.Stop()
	c.JSON(http.StatusOK, gin.H{"message": "Sweeper stopped"})
}

// SweeperStatus reports whether the sweeper runs and its retention
// @Summary Retention sweeper status
// @Tags admin
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/sweeper/status [get]
func (h *Handler) SweeperStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"running":   h.Sweeper.IsRunning(),
		"retention": h.Sweeper.Retention().String(),
	})
}

// Health pings the store and the cache
// @Summary Liveness of the store and cache
// @Tags ops
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /healthz [get]
func (h *Handler) Health(c *gin.Context) {
	if err := h.Service.Health(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
