package handler

import (
    "net/http"
    "net/mail"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/cafe-ordering/internal/model"
    "github.com/iliyamo/cafe-ordering/internal/repository"
)

const maxMessageLen = 2000

// MessageHandler handles the public contact form and its admin inbox.
type MessageHandler struct {
    Messages *repository.MessageRepo
    Log      logrus.FieldLogger
}

func NewMessageHandler(m *repository.MessageRepo, log logrus.FieldLogger) *MessageHandler {
    return &MessageHandler{Messages: m, Log: log}
}

type messageReq struct {
    Name  string `json:"name"`
    Email string `json:"email"`
    Body  string `json:"body"`
}

// Create stores a contact message.
func (h *MessageHandler) Create(c echo.Context) error {
    var req messageReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    m := model.Message{
        Name:  strings.TrimSpace(req.Name),
        Email: strings.ToLower(strings.TrimSpace(req.Email)),
        Body:  strings.TrimSpace(req.Body),
    }
    if m.Name == "" || len(m.Name) > maxNameLen {
        return badRequest(c, "name is required (max 120 characters)")
    }
    if _, err := mail.ParseAddress(m.Email); err != nil {
        return badRequest(c, "valid email required")
    }
    if m.Body == "" || len(m.Body) > maxMessageLen {
        return badRequest(c, "body is required (max 2000 characters)")
    }
    ctx, cancel := reqCtx(c)
    defer cancel()
    if err := h.Messages.Create(ctx, &m); err != nil {
        return fail(c, h.Log, err)
    }
    m.CreatedAt = time.Now().UTC()
    return c.JSON(http.StatusCreated, m)
}

// List returns the inbox; ?unread=true hides handled messages.
func (h *MessageHandler) List(c echo.Context) error {
    ctx, cancel := reqCtx(c)
    defer cancel()
    list, err := h.Messages.List(ctx, c.QueryParam("unread") == "true")
    if err != nil {
        return fail(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, list)
}

func (h *MessageHandler) MarkRead(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid id")
    }
    ctx, cancel := reqCtx(c)
    defer cancel()
    if err := h.Messages.MarkRead(ctx, id); err != nil {
        return fail(c, h.Log, err)
    }
    return c.NoContent(http.StatusNoContent)
}

func (h *MessageHandler) Delete(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid id")
    }
    ctx, cancel := reqCtx(c)
    defer cancel()
    if err := h.Messages.Delete(ctx, id); err != nil {
        return fail(c, h.Log, err)
    }
    return c.NoContent(http.StatusNoContent)
}

// CustomerHandler lists registered customers for admins.
type CustomerHandler struct {
    Users *repository.UserRepo
    Log   logrus.FieldLogger
}

func NewCustomerHandler(u *repository.UserRepo, log logrus.FieldLogger) *CustomerHandler {
    return &CustomerHandler{Users: u, Log: log}
}

type customerResp struct {
    ID        uint64    `json:"id"`
    Email     string    `json:"email"`
    IsActive  bool      `json:"is_active"`
    CreatedAt time.Time `json:"created_at"`
}

// List returns every CUSTOMER account, newest first.
func (h *CustomerHandler) List(c echo.Context) error {
    ctx, cancel := reqCtx(c)
    defer cancel()
    users, err := h.Users.ListByRole(ctx, model.RoleCustomer)
    if err != nil {
        return fail(c, h.Log, err)
    }
    out := make([]customerResp, 0, len(users))
    for _, u := range users {
        out = append(out, customerResp{ID: u.ID, Email: u.Email, IsActive: u.IsActive, CreatedAt: u.CreatedAt})
    }
    return c.JSON(http.StatusOK, out)
}
