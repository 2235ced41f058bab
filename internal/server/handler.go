// Package server exposes the document and chat API over HTTP.
package server

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"document-chat/internal/auth"
	"document-chat/internal/conversation"
	"document-chat/internal/helper"
	"document-chat/internal/ingest"
	"document-chat/internal/models"
	"document-chat/internal/rag"
)

// Handler wires the HTTP surface to the core services.
type Handler struct {
	pipeline      *ingest.Pipeline
	engine        *rag.Engine
	conversations *conversation.Store
	auth          *auth.Service
	tempDir       string
	defaultTopK   int
}

func NewHandler(pipeline *ingest.Pipeline, engine *rag.Engine, conversations *conversation.Store, authService *auth.Service, tempDir string, defaultTopK int) *Handler {
	if defaultTopK == 0 {
		defaultTopK = rag.DefaultTopK
	}
	return &Handler{
		pipeline:      pipeline,
		engine:        engine,
		conversations: conversations,
		auth:          authService,
		tempDir:       tempDir,
		defaultTopK:   defaultTopK,
	}
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// RegisterRequest creates a new account.
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// Register creates a user account.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
		return
	}

	err := h.auth.Register(c.Request.Context(), req.Username, req.Password, req.Email, req.FullName)
	if errors.Is(err, auth.ErrUserExists) {
		c.JSON(http.StatusConflict, ErrorResponse{Code: 409, Message: err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Message: "failed to register user"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "user created"})
}

// TokenRequest exchanges credentials for a bearer token.
type TokenRequest struct {
	Username string `json:"username" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

// TokenResponse carries the issued bearer token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Token authenticates a user and issues a bearer token.
func (h *Handler) Token(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
		return
	}

	token, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Code: 401, Message: err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Message: "failed to authenticate"})
		return
	}
	c.JSON(http.StatusOK, TokenResponse{AccessToken: token, TokenType: "bearer"})
}

// Upload ingests a multipart document upload for the authenticated owner.
// The file is spooled to the scratch dir for the duration of the request.
func (h *Handler) Upload(c *gin.Context) {
	owner := c.GetString(identityKey)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: "missing file field"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: "unreadable file"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: "unreadable file"})
		return
	}

	tempPath, err := h.saveTempFile(data, fileHeader.Filename)
	if err != nil {
		log.Error().Err(err).Msg("Failed to spool upload")
	} else {
		defer os.Remove(tempPath)
	}

	summary, err := h.pipeline.Ingest(c.Request.Context(), ingest.Request{
		Data:      data,
		Filename:  fileHeader.Filename,
		Owner:     owner,
		SessionID: c.PostForm("chat_id"),
	})
	if err != nil {
		status := uploadErrorStatus(err)
		c.JSON(status, ErrorResponse{Code: status, Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "File processed successfully", "metadata": summary})
}

// ChatRequest asks a question within a session.
type ChatRequest struct {
	Question      string `json:"question" binding:"required"`
	SessionID     string `json:"chat_id" binding:"required"`
	TopK          *int   `json:"top_k"`
	SessionScoped bool   `json:"session_only"`
}

// ChatResponse carries the generated answer.
type ChatResponse struct {
	Results string `json:"results"`
}

// Chat answers a question over the owner's documents. Provider failures are
// absorbed by the engine, so this endpoint only fails on invalid input.
func (h *Handler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
		return
	}
	// Only an absent top_k gets the default; an explicit 0 is the caller's
	// mistake and is rejected by the engine.
	topK := h.defaultTopK
	if req.TopK != nil {
		topK = *req.TopK
	}

	answer, err := h.engine.Answer(c.Request.Context(), rag.Request{
		Question:      req.Question,
		Owner:         c.GetString(identityKey),
		SessionID:     req.SessionID,
		TopK:          topK,
		SessionScoped: req.SessionScoped,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, ChatResponse{Results: answer})
}

// Conversation lists all messages of one session in order.
func (h *Handler) Conversation(c *gin.Context) {
	sessionID := c.Param("id")

	messages, err := h.conversations.ListSession(c.Request.Context(), c.GetString(identityKey), sessionID)
	if errors.Is(err, models.ErrInvalidSessionID) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Message: "failed to fetch conversation"})
		return
	}

	c.JSON(http.StatusOK, models.Conversation{Messages: messages})
}

// Conversations lists one summary row per session the owner has.
func (h *Handler) Conversations(c *gin.Context) {
	summaries, err := h.conversations.ListSummaries(c.Request.Context(), c.GetString(identityKey))
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Message: "failed to fetch conversations"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": summaries})
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) saveTempFile(data []byte, filename string) (string, error) {
	name, err := helper.GenerateUUID()
	if err != nil {
		return "", err
	}
	path := filepath.Join(h.tempDir, name+filepath.Ext(filename))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}

func uploadErrorStatus(err error) int {
	switch {
	case errors.Is(err, models.ErrUploadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, models.ErrInvalidUpload):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrUnsupportedDocument):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, models.ErrIndexWrite):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
