// Package http 暴露贷款申请工作流的 REST 接口。
package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/wyfcoding/loanorigination/internal/loan/application"
	"github.com/wyfcoding/loanorigination/internal/loan/domain"
)

// 单份材料大小上限
const maxDocumentBytes = 16 << 20

type Handler struct {
	engine *application.Engine
}

func NewHandler(engine *application.Engine) *Handler {
	return &Handler{engine: engine}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/v1/loan")
	g.POST("/chat", h.Chat)
	g.POST("/:id/chat", h.Chat)
	g.POST("/:id/documents", h.UploadDocument)
	g.GET("/:id", h.GetState)
	g.POST("/:id/reset", h.Reset)
	g.POST("/:id/sanction/resend", h.ResendSanction)
}

// Chat 处理一条用户消息并推进工作流一轮。
// 未携带申请 id 时生成新 id 开启会话
func (h *Handler) Chat(c *gin.Context) {
	var req struct {
		Message       string `json:"message" binding:"required"`
		ApplicationID string `json:"application_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id := c.Param("id")
	if id == "" {
		id = req.ApplicationID
	}
	if id == "" {
		id = uuid.NewString()
	}
	result, err := h.engine.ProcessTurn(c.Request.Context(), id, application.TurnInput{
		Message: req.Message,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// UploadDocument 接收 multipart 材料上传
func (h *Handler) UploadDocument(c *gin.Context) {
	docType := c.PostForm("doc_type")
	if docType == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "doc_type is required"})
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if file.Size > maxDocumentBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}
	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	result, err := h.engine.SubmitDocument(c.Request.Context(), c.Param("id"), docType, file.Filename, f, file.Size)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetState 返回申请检查点投影
func (h *Handler) GetState(c *gin.Context) {
	snapshot, err := h.engine.GetState(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// Reset 重置申请为全新记录
func (h *Handler) Reset(c *gin.Context) {
	snapshot, err := h.engine.Reset(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// ResendSanction 重发已批准申请的批贷函
func (h *Handler) ResendSanction(c *gin.Context) {
	letter, err := h.engine.ResendSanction(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, letter)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrApplicationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrApplicationClosed), errors.Is(err, domain.ErrSanctionNotAvailable):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
