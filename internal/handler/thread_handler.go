package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/siddhant-rajhans/ducknest/internal/model"
	"github.com/siddhant-rajhans/ducknest/internal/service"
)

// OpenThreadRequestDTO is the JSON payload for starting an inquiry.
type OpenThreadRequestDTO struct {
	ListingID string `json:"listing_id" binding:"required"`
}

// SendMessageRequestDTO is the JSON payload for a new message. An empty
// body is rejected by the messaging service once the sender is authorized.
type SendMessageRequestDTO struct {
	Body string `json:"body"`
}

// MessageResponseDTO is what we return for each message.
type MessageResponseDTO struct {
	ID        string `json:"id"`
	ThreadID  string `json:"thread_id"`
	SenderID  string `json:"sender_id"`
	Body      string `json:"body"`
	CreatedAt string `json:"created_at"`
}

func messageDTO(m model.Message) MessageResponseDTO {
	return MessageResponseDTO{
		ID:        m.ID,
		ThreadID:  m.ThreadID,
		SenderID:  m.SenderID,
		Body:      m.Body,
		CreatedAt: m.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// ThreadHandler ties HTTP requests to the MessagingService.
type ThreadHandler struct {
	messaging *service.MessagingService
}

func NewThreadHandler(ms *service.MessagingService) *ThreadHandler {
	return &ThreadHandler{messaging: ms}
}

// RegisterRoutes registers:
//
//	POST /threads
//	GET  /threads
//	GET  /threads/:id/messages
//	POST /threads/:id/messages
func (h *ThreadHandler) RegisterRoutes(rg *gin.RouterGroup) {
	grp := rg.Group("/threads")
	{
		grp.POST("", h.OpenThread)
		grp.GET("", h.ListThreads)
		grp.GET("/:id/messages", h.GetMessages)
		grp.POST("/:id/messages", h.SendMessage)
	}
}

// OpenThread answers 201 for a new thread and 200 when the caller already
// had one on the listing.
func (h *ThreadHandler) OpenThread(c *gin.Context) {
	var req OpenThreadRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	t, created, err := h.messaging.OpenThread(c.Request.Context(), req.ListingID, callerID(c))
	if err != nil {
		fail(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, t)
}

func (h *ThreadHandler) ListThreads(c *gin.Context) {
	ts, err := h.messaging.Threads(c.Request.Context(), callerID(c))
	if err != nil {
		fail(c, err)
		return
	}
	if ts == nil {
		ts = []model.Thread{}
	}
	c.JSON(http.StatusOK, ts)
}

func (h *ThreadHandler) GetMessages(c *gin.Context) {
	msgs, err := h.messaging.Messages(c.Request.Context(), c.Param("id"), callerID(c))
	if err != nil {
		fail(c, err)
		return
	}
	out := make([]MessageResponseDTO, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageDTO(m))
	}
	c.JSON(http.StatusOK, out)
}

func (h *ThreadHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	m, err := h.messaging.SendMessage(c.Request.Context(), c.Param("id"), callerID(c), req.Body)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, messageDTO(m))
}
