package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func (h *Handler) OpenChat(c *gin.Context) {
	var body struct {
		PeerUID string `json:"peer_uid" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body: " + err.Error()})
		return
	}

	room, err := h.Chat.Open(c.Request.Context(), mustUser(c).UID, body.PeerUID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chat": room})
}

func (h *Handler) ChatMessages(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	msgs, err := h.Chat.History(c.Request.Context(), c.Param("id"), mustUser(c).UID, limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (h *Handler) PostChatMessage(c *gin.Context) {
	var body struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body: " + err.Error()})
		return
	}

	msg, err := h.Chat.Send(c.Request.Context(), c.Param("id"), mustUser(c).UID, body.Text)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// ChatSocket streams a chat's messages over a websocket. Browsers cannot
// set headers on the upgrade, so the token may come as ?token=.
func (h *Handler) ChatSocket(c *gin.Context) {
	uid := mustUser(c).UID
	chatID := c.Param("id")
	if _, err := h.Chat.Member(c.Request.Context(), chatID, uid); err != nil {
		h.fail(c, err)
		return
	}
	h.Chat.ServeWS(c.Writer, c.Request, chatID, uid)
}
