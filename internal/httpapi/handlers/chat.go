package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rgs-labs/rgsai/internal/ai"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatJSONReq struct {
	Messages []chatMessage `json:"messages"`
}

// Chat accepts one message as either a multipart form (fields "message"
// and "file") or a JSON body whose last message supplies the text, and
// returns the collaborator's reply.
func (h *Handler) Chat(c *gin.Context) {
	var (
		text string
		file *ai.File
	)

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		text = c.PostForm("message")
		fh, err := c.FormFile("file")
		if err == nil && fh != nil {
			f, err := fh.Open()
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{
					"error":   "failed to read uploaded file",
					"details": err.Error(),
				})
				return
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{
					"error":   "failed to read uploaded file",
					"details": err.Error(),
				})
				return
			}
			file = &ai.File{
				Name:     fh.Filename,
				MIMEType: ai.InferMIMEType(fh.Filename, fh.Header.Get("Content-Type")),
				Data:     data,
			}
		}
	} else {
		var req chatJSONReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid request body",
				"details": err.Error(),
			})
			return
		}
		if len(req.Messages) > 0 {
			text = req.Messages[len(req.Messages)-1].Content
		}
	}

	provider, err := h.providerFor(c.Request.Context())
	if err != nil {
		if errors.Is(err, errAPIKeyMissing) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": ai.ErrMsgKeyNotSet})
			return
		}
		h.Logger.Error("provider setup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   ai.ErrMsgGeneration,
			"details": err.Error(),
		})
		return
	}

	reply, err := provider.Generate(c.Request.Context(), ai.Request{Text: text, File: file})
	if err != nil {
		h.Logger.Error("generation failed",
			zap.Bool("has_file", file != nil), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   ai.ClassifyError(err),
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"response":      reply,
		"fileProcessed": file != nil,
	})
}
