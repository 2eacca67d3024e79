// Package api exposes game snapshots and actions over HTTP and pushes
// live updates to connected pages over websockets.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/jetsharklambo/pu2-toolkit/app"
	"github.com/jetsharklambo/pu2-toolkit/core"
	"github.com/jetsharklambo/pu2-toolkit/txmgr"
)

// Service is the application surface the handlers call into.
type Service interface {
	Snapshot(ctx context.Context, code string) (*app.Snapshot, error)
	Create(ctx context.Context, params txmgr.CreateParams) (*txmgr.Action, error)
	Join(ctx context.Context, code string) (*txmgr.Action, error)
	Lock(ctx context.Context, code string) (*txmgr.Action, error)
	ReportWinners(ctx context.Context, code string, winners []common.Address) (*txmgr.Action, error)
	Claim(ctx context.Context, code string) (*txmgr.Action, error)
	SetSplits(ctx context.Context, code string, splits core.PrizeSplits) (*txmgr.Action, error)
	AddJudge(ctx context.Context, code string, judge common.Address) (*txmgr.Action, error)
	SetJudges(ctx context.Context, code string, judges []common.Address) (*txmgr.Action, error)
}

// Server hosts the REST routes and the live-update hub.
type Server struct {
	svc Service
	hub *hub
}

func NewServer(svc Service) *Server {
	return &Server{svc: svc, hub: newHub()}
}

// Router assembles the gin engine with CORS open to browser frontends.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowHeaders = []string{"Authorization", "Content-Type"}
	r.Use(cors.New(corsCfg))

	r.GET("/healthz", s.health)

	games := r.Group("/games")
	{
		games.POST("", s.create)
		games.GET("/:code", s.snapshot)
		games.GET("/:code/live", s.live)
		games.POST("/:code/join", s.join)
		games.POST("/:code/lock", s.lock)
		games.POST("/:code/winners", s.reportWinners)
		games.POST("/:code/claim", s.claim)
		games.POST("/:code/splits", s.setSplits)
		games.POST("/:code/judges", s.setJudges)
		games.POST("/:code/judges/add", s.addJudge)
	}
	return r
}

// NotifySettled refreshes the game and pushes the new snapshot to every
// live subscriber. Wire it to the transaction manager's settle hook.
func (s *Server) NotifySettled(game string) {
	snap, err := s.svc.Snapshot(context.Background(), game)
	if err != nil {
		log.WithError(err).WithField("game", game).Warn("post-action refresh failed")
		return
	}
	s.hub.broadcast(game, toSnapshotResponse(snap))
}

// NotifyAction pushes an action status change to the game's live
// subscribers so watching pages see progress before the receipt lands.
// Wire it to the transaction manager's update hook.
func (s *Server) NotifyAction(a txmgr.Action) {
	if a.Game == "" {
		return
	}
	s.hub.broadcast(a.Game, toActionResponse(&a))
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) snapshot(c *gin.Context) {
	code := c.Param("code")
	if !core.IsGameCode(code) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid game code"})
		return
	}
	snap, err := s.svc.Snapshot(c.Request.Context(), code)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSnapshotResponse(snap))
}

func (s *Server) create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	buyIn, err := parseAmount(req.BuyIn)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	params := txmgr.CreateParams{BuyIn: buyIn, MaxPlayers: req.MaxPlayers}
	if req.Token != "" {
		token, err := parseAddress(req.Token)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		params.Token = token
	}
	s.writeAction(c, func(ctx context.Context) (*txmgr.Action, error) {
		return s.svc.Create(ctx, params)
	})
}

func (s *Server) join(c *gin.Context) {
	code := c.Param("code")
	s.writeAction(c, func(ctx context.Context) (*txmgr.Action, error) {
		return s.svc.Join(ctx, code)
	})
}

func (s *Server) lock(c *gin.Context) {
	code := c.Param("code")
	s.writeAction(c, func(ctx context.Context) (*txmgr.Action, error) {
		return s.svc.Lock(ctx, code)
	})
}

func (s *Server) reportWinners(c *gin.Context) {
	code := c.Param("code")
	var req winnersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	winners, err := parseAddressList(req.Winners)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.writeAction(c, func(ctx context.Context) (*txmgr.Action, error) {
		return s.svc.ReportWinners(ctx, code, winners)
	})
}

func (s *Server) claim(c *gin.Context) {
	code := c.Param("code")
	s.writeAction(c, func(ctx context.Context) (*txmgr.Action, error) {
		return s.svc.Claim(ctx, code)
	})
}

func (s *Server) setSplits(c *gin.Context) {
	code := c.Param("code")
	var req splitsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.writeAction(c, func(ctx context.Context) (*txmgr.Action, error) {
		return s.svc.SetSplits(ctx, code, core.PrizeSplits(req.Splits))
	})
}

func (s *Server) addJudge(c *gin.Context) {
	code := c.Param("code")
	var req judgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	judge, err := parseAddress(req.Judge)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.writeAction(c, func(ctx context.Context) (*txmgr.Action, error) {
		return s.svc.AddJudge(ctx, code, judge)
	})
}

func (s *Server) setJudges(c *gin.Context) {
	code := c.Param("code")
	var req judgesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	judges, err := parseAddressList(req.Judges)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.writeAction(c, func(ctx context.Context) (*txmgr.Action, error) {
		return s.svc.SetJudges(ctx, code, judges)
	})
}

func (s *Server) writeAction(c *gin.Context, run func(ctx context.Context) (*txmgr.Action, error)) {
	a, err := run(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toActionResponse(a))
}

// writeError maps classified action failures onto HTTP statuses;
// anything unclassified reads as an upstream node problem.
func writeError(c *gin.Context, err error) {
	var ae *txmgr.ActionError
	if errors.As(err, &ae) {
		c.JSON(statusFor(ae.Kind), gin.H{"error": ae.Message, "kind": string(ae.Kind)})
		return
	}
	log.WithError(err).Error("request failed")
	c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
}

func statusFor(kind txmgr.Kind) int {
	switch kind {
	case txmgr.KindValidation, txmgr.KindRejected:
		return http.StatusBadRequest
	case txmgr.KindReverted:
		return http.StatusConflict
	case txmgr.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
