package controller

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"

	"multimodal-rag-be/internal/dto"
	"multimodal-rag-be/internal/pkg/logger"
	"multimodal-rag-be/internal/pkg/serverutils"
	"multimodal-rag-be/internal/service"
	"multimodal-rag-be/pkg/apperror"
	"multimodal-rag-be/pkg/rag/orchestrator"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

type IChatbotController interface {
	RegisterRoutes(r fiber.Router)
	CreateSession(ctx *fiber.Ctx) error
	DeleteSession(ctx *fiber.Ctx) error
	GetChatHistory(ctx *fiber.Ctx) error
	Query(ctx *fiber.Ctx) error
	QuerySync(ctx *fiber.Ctx) error
	Feedback(ctx *fiber.Ctx) error
	GetFeedback(ctx *fiber.Ctx) error
}

type chatbotController struct {
	chatbotService service.IChatbotService
	jwtSecret      string
	logger         logger.ILogger
}

func NewChatbotController(chatbotService service.IChatbotService, jwtSecret string, log logger.ILogger) IChatbotController {
	return &chatbotController{
		chatbotService: chatbotService,
		jwtSecret:      jwtSecret,
		logger:         log,
	}
}

func (c *chatbotController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat/v1")
	h.Use(serverutils.JwtMiddleware(c.jwtSecret))
	h.Post("sessions", c.CreateSession)
	h.Delete("sessions/:id", c.DeleteSession)
	h.Get("sessions/:id/history", c.GetChatHistory)
	h.Post("query", c.Query)
	h.Post("query/sync", c.QuerySync)
	h.Post("feedback", c.Feedback)
	h.Get("messages/:id/feedback", c.GetFeedback)
	h.Get("ws", c.requireUpgrade, websocket.New(c.stream))
}

func (c *chatbotController) CreateSession(ctx *fiber.Ctx) error {
	var req dto.CreateSessionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	req.ClientId = serverutils.ClientId(ctx, req.ClientId)

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.chatbotService.CreateSession(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success create session", res))
}

func (c *chatbotController) DeleteSession(ctx *fiber.Ctx) error {
	id, err := sessionIdParam(ctx)
	if err != nil {
		return err
	}

	clientId := serverutils.ClientId(ctx, ctx.Query("client_id"))
	if err := c.chatbotService.DeleteSession(ctx.UserContext(), clientId, id); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success delete session", nil))
}

func (c *chatbotController) GetChatHistory(ctx *fiber.Ctx) error {
	id, err := sessionIdParam(ctx)
	if err != nil {
		return err
	}

	clientId := serverutils.ClientId(ctx, ctx.Query("client_id"))
	res, err := c.chatbotService.GetChatHistory(ctx.UserContext(), clientId, id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get chat history", res))
}

// Query streams the answer as server-sent events. Errors found before the stream
// opens are ordinary JSON errors; later ones arrive as a single error event.
func (c *chatbotController) Query(ctx *fiber.Ctx) error {
	req, err := c.parseQuery(ctx)
	if err != nil {
		return err
	}
	if req.SessionId != uuid.Nil {
		if err := c.chatbotService.CheckSession(ctx.UserContext(), req.ClientId, req.SessionId); err != nil {
			return err
		}
	}

	ctx.Set(fiber.HeaderContentType, "text/event-stream")
	ctx.Set(fiber.HeaderCacheControl, "no-cache")
	ctx.Set(fiber.HeaderConnection, "keep-alive")
	ctx.Set("X-Accel-Buffering", "no")

	// The writer runs after the handler returns, so the turn gets its own context.
	turnCtx, cancel := context.WithCancel(context.WithoutCancel(ctx.UserContext()))
	ctx.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()

		sink := orchestrator.SinkFunc(func(text string) error {
			return writeEvent(w, dto.StreamEventChunk, dto.StreamChunk{Text: text})
		})

		res, err := c.chatbotService.SendQuery(turnCtx, req, sink)
		if err != nil {
			c.logger.Warn("ChatbotController", "Streamed turn ended with error", map[string]interface{}{
				"client_id":  req.ClientId,
				"error_kind": serverutils.KindName(err),
				"error":      err.Error(),
			})
			_ = writeEvent(w, dto.StreamEventError, streamError(err))
			return
		}
		_ = writeEvent(w, dto.StreamEventDone, res)
	})

	return nil
}

func (c *chatbotController) QuerySync(ctx *fiber.Ctx) error {
	req, err := c.parseQuery(ctx)
	if err != nil {
		return err
	}

	res, err := c.chatbotService.SendQuery(ctx.UserContext(), req, nil)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success answer query", res))
}

func (c *chatbotController) Feedback(ctx *fiber.Ctx) error {
	var req dto.FeedbackRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.chatbotService.SendFeedback(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success submit feedback", res))
}

func (c *chatbotController) GetFeedback(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return apperror.Validation("controller.messageId", "invalid message id %q", ctx.Params("id"))
	}

	clientId := serverutils.ClientId(ctx, ctx.Query("client_id"))
	res, err := c.chatbotService.GetFeedback(ctx.UserContext(), clientId, id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get feedback", res))
}

func (c *chatbotController) requireUpgrade(ctx *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(ctx) {
		return ctx.Next()
	}
	return fiber.ErrUpgradeRequired
}

// stream serves one query per text frame until the client goes away.
func (c *chatbotController) stream(conn *websocket.Conn) {
	tokenClientId, _ := conn.Locals(serverutils.LocalClientId).(string)
	c.logger.Info("ChatbotController", "Starting WebSocket session", map[string]interface{}{
		"client_id": tokenClientId,
	})
	defer c.logger.Info("ChatbotController", "WebSocket session ended", map[string]interface{}{
		"client_id": tokenClientId,
	})

	for {
		var req dto.QueryRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("ChatbotController", "WebSocket read failed", map[string]interface{}{
					"error": err.Error(),
				})
			}
			return
		}
		if tokenClientId != "" {
			req.ClientId = tokenClientId
		}

		if err := serverutils.ValidateRequest(req); err != nil {
			if conn.WriteJSON(dto.StreamFrame{Type: dto.StreamEventError, Data: streamError(err)}) != nil {
				return
			}
			continue
		}

		sink := orchestrator.SinkFunc(func(text string) error {
			return conn.WriteJSON(dto.StreamFrame{Type: dto.StreamEventChunk, Data: dto.StreamChunk{Text: text}})
		})

		frame := dto.StreamFrame{Type: dto.StreamEventDone}
		res, err := c.chatbotService.SendQuery(context.Background(), &req, sink)
		if err != nil {
			frame = dto.StreamFrame{Type: dto.StreamEventError, Data: streamError(err)}
		} else {
			frame.Data = res
		}
		if conn.WriteJSON(frame) != nil {
			return
		}
	}
}

func (c *chatbotController) parseQuery(ctx *fiber.Ctx) (*dto.QueryRequest, error) {
	var req dto.QueryRequest
	if err := ctx.BodyParser(&req); err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	req.ClientId = serverutils.ClientId(ctx, req.ClientId)

	if err := serverutils.ValidateRequest(req); err != nil {
		return nil, err
	}
	return &req, nil
}

func sessionIdParam(ctx *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return uuid.Nil, apperror.Validation("controller.sessionId", "invalid session id %q", ctx.Params("id"))
	}
	return id, nil
}

func streamError(err error) dto.StreamError {
	return dto.StreamError{ErrorKind: serverutils.KindName(err), Message: err.Error()}
}

// writeEvent flushes every event; a failed flush means the client is gone.
func writeEvent(w *bufio.Writer, event string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	return w.Flush()
}
