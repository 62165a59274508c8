// Package v1 exposes the assistant over a small JSON API. Handlers stay
// thin: turn execution and error absorption live in the workflow, so this
// layer only translates transport concerns.
package v1

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"

	"github.com/prodassist/prodassist/store"
	"github.com/prodassist/prodassist/workflow"
)

type APIV1Service struct {
	Workflow *workflow.Workflow
	Store    *store.Store
}

func NewAPIV1Service(wf *workflow.Workflow, st *store.Store) *APIV1Service {
	return &APIV1Service{Workflow: wf, Store: st}
}

type askRequest struct {
	Query    string `json:"query"`
	ThreadID string `json:"threadId"` // optional; one is minted when empty
}

type askResponse struct {
	Answer   string `json:"answer"`
	ThreadID string `json:"threadId"`
}

type conversationResponse struct {
	ThreadID  string `json:"threadId"`
	CreatedTs int64  `json:"createdTs"`
	UpdatedTs int64  `json:"updatedTs"`
}

type messageResponse struct {
	ID        int32  `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	ToolName  string `json:"toolName,omitempty"`
	CreatedTs int64  `json:"createdTs"`
}

func (s *APIV1Service) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1")
	g.POST("/ask", s.ask)
	g.GET("/conversations", s.listConversations)
	g.GET("/conversations/:threadId/messages", s.listMessages)
}

func (s *APIV1Service) ask(c *echo.Context) error {
	var req askRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if strings.TrimSpace(req.Query) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query required")
	}
	threadID := strings.TrimSpace(req.ThreadID)
	if threadID == "" {
		threadID = uuid.New().String()
	}

	// The workflow absorbs turn-level failures into an in-band apology, so
	// an error here still carries a presentable answer.
	answer, _ := s.Workflow.Run(c.Request().Context(), req.Query, threadID)
	return c.JSON(http.StatusOK, askResponse{Answer: answer, ThreadID: threadID})
}

func (s *APIV1Service) listConversations(c *echo.Context) error {
	convs, err := s.Store.ListConversations(c.Request().Context(), &store.FindConversation{})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	resp := make([]conversationResponse, 0, len(convs))
	for _, conv := range convs {
		resp = append(resp, conversationResponse{
			ThreadID:  conv.ThreadID,
			CreatedTs: conv.CreatedTs,
			UpdatedTs: conv.UpdatedTs,
		})
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *APIV1Service) listMessages(c *echo.Context) error {
	threadID := c.Param("threadId")
	conv, err := s.Store.GetConversation(c.Request().Context(), &store.FindConversation{ThreadID: &threadID})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if conv == nil {
		return echo.NewHTTPError(http.StatusNotFound, "conversation not found")
	}
	msgs, err := s.Store.ListTurnMessages(c.Request().Context(), &store.FindTurnMessage{ConversationID: conv.ID})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	resp := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		resp = append(resp, messageResponse{
			ID:        m.ID,
			Role:      m.Role,
			Content:   m.Content,
			ToolName:  m.ToolName,
			CreatedTs: m.CreatedTs,
		})
	}
	return c.JSON(http.StatusOK, resp)
}
