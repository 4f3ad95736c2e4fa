package main

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"zapzap/internal/bus"
	"zapzap/internal/core"
	"zapzap/internal/domain"
)

// newRouter builds the Gin HTTP+SSE adapter over the Action API (spec
// §4.6): one handler per operation plus a streaming events endpoint.
// Modeled on main.go's route table and handleMessage-style dispatch,
// generalized from one WebSocket connection per table to one HTTP call
// per operation against the shared Core.
func newRouter(c *core.Core, b *bus.Bus) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.POST("/parties", createPartyHandler(c))
	r.POST("/parties/:id/join", joinPartyHandler(c))
	r.POST("/parties/:id/leave", leavePartyHandler(c))
	r.POST("/parties/:id/start", startPartyHandler(c))
	r.POST("/parties/:id/play", playCardsHandler(c))
	r.POST("/parties/:id/draw", drawCardHandler(c))
	r.POST("/parties/:id/zapzap", callZapZapHandler(c))
	r.POST("/parties/:id/advance", advanceRoundHandler(c))
	r.GET("/parties/:id/events", eventsHandler(b))
	r.GET("/healthz", func(ctx *gin.Context) { ctx.Status(http.StatusOK) })

	return r
}

type createPartyRequest struct {
	OwnerID     string   `json:"ownerId" binding:"required"`
	Name        string   `json:"name" binding:"required"`
	Visibility  string   `json:"visibility"`
	PlayerCount int      `json:"playerCount"`
	HandSize    int      `json:"handSize"`
	BotSeatIDs  []string `json:"botSeatIds"`
}

func createPartyHandler(c *core.Core) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var req createPartyRequest
		if err := ctx.ShouldBindJSON(&req); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		visibility := domain.VisibilityPublic
		if req.Visibility == "private" {
			visibility = domain.VisibilityPrivate
		}
		party, err := c.CreateParty(ctx, req.OwnerID, req.Name, visibility, domain.Settings{
			PlayerCount: req.PlayerCount,
			HandSize:    req.HandSize,
		}, req.BotSeatIDs)
		if err != nil {
			writeError(ctx, err)
			return
		}
		ctx.JSON(http.StatusCreated, party)
	}
}

type userRequest struct {
	UserID string `json:"userId" binding:"required"`
}

func joinPartyHandler(c *core.Core) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var req userRequest
		if err := ctx.ShouldBindJSON(&req); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		party, err := c.JoinParty(ctx, ctx.Param("id"), req.UserID)
		if err != nil {
			writeError(ctx, err)
			return
		}
		ctx.JSON(http.StatusOK, party)
	}
}

func leavePartyHandler(c *core.Core) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var req userRequest
		if err := ctx.ShouldBindJSON(&req); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := c.LeaveParty(ctx, ctx.Param("id"), req.UserID); err != nil {
			writeError(ctx, err)
			return
		}
		ctx.Status(http.StatusNoContent)
	}
}

func startPartyHandler(c *core.Core) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var req userRequest
		if err := ctx.ShouldBindJSON(&req); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		round, err := c.StartParty(ctx, ctx.Param("id"), req.UserID)
		if err != nil {
			writeError(ctx, err)
			return
		}
		ctx.JSON(http.StatusOK, round)
	}
}

type playCardsRequest struct {
	UserID  string `json:"userId" binding:"required"`
	CardIDs []int  `json:"cardIds" binding:"required"`
}

func playCardsHandler(c *core.Core) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var req playCardsRequest
		if err := ctx.ShouldBindJSON(&req); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := c.PlayCards(ctx, ctx.Param("id"), req.UserID, req.CardIDs); err != nil {
			writeError(ctx, err)
			return
		}
		ctx.Status(http.StatusNoContent)
	}
}

type drawCardRequest struct {
	UserID string `json:"userId" binding:"required"`
	Source string `json:"source"`
	CardID *int   `json:"cardId"`
}

func drawCardHandler(c *core.Core) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var req drawCardRequest
		if err := ctx.ShouldBindJSON(&req); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		source := domain.DrawFromDeck
		if req.Source == "discard" {
			source = domain.DrawFromDiscard
		}
		if err := c.DrawCard(ctx, ctx.Param("id"), req.UserID, source, req.CardID); err != nil {
			writeError(ctx, err)
			return
		}
		ctx.Status(http.StatusNoContent)
	}
}

func callZapZapHandler(c *core.Core) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var req userRequest
		if err := ctx.ShouldBindJSON(&req); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := c.CallZapZap(ctx, ctx.Param("id"), req.UserID); err != nil {
			writeError(ctx, err)
			return
		}
		ctx.Status(http.StatusNoContent)
	}
}

func advanceRoundHandler(c *core.Core) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		round, err := c.AdvanceRound(ctx, ctx.Param("id"))
		if err != nil {
			writeError(ctx, err)
			return
		}
		ctx.JSON(http.StatusOK, round)
	}
}

// eventsHandler streams one party's events as Server-Sent Events (spec
// §4.5), using gin's c.Stream the way main.go's WebSocket loop pushes
// broadcast messages, adapted from a socket frame per message to an SSE
// frame per event.
func eventsHandler(b *bus.Bus) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		partyID := ctx.Param("id")
		userID := ctx.Query("userId")
		sub := b.Subscribe(partyID, userID)
		defer sub.Unsubscribe()

		ctx.Header("Content-Type", "text/event-stream")
		ctx.Header("Cache-Control", "no-cache")
		ctx.Header("Connection", "keep-alive")

		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()

		ctx.Stream(func(w io.Writer) bool {
			select {
			case evt, ok := <-sub.Chan:
				if !ok {
					return false
				}
				ctx.SSEvent(string(evt.Type), evt)
				return true
			case <-ticker.C:
				ctx.SSEvent("ping", nil)
				return true
			case <-ctx.Request.Context().Done():
				return false
			}
		})
	}
}

// writeError maps a *core.CoreError to its HTTP status, the same
// code-to-status table as spec §7.
func writeError(ctx *gin.Context, err error) {
	ce, ok := err.(*core.CoreError)
	if !ok {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	status := http.StatusInternalServerError
	switch ce.Code {
	case core.CodeInvalidInput:
		status = http.StatusBadRequest
	case core.CodeNotFound:
		status = http.StatusNotFound
	case core.CodeUnauthorized:
		status = http.StatusForbidden
	case core.CodeConflict:
		status = http.StatusConflict
	case core.CodeWrongState:
		status = http.StatusConflict
	case core.CodeRuleViolation:
		status = http.StatusUnprocessableEntity
	case core.CodeTimeout:
		status = http.StatusRequestTimeout
	case core.CodeInternal:
		status = http.StatusInternalServerError
	}
	ctx.JSON(status, gin.H{"code": ce.Code, "error": ce.Message})
}
