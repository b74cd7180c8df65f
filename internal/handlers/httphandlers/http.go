package httphandlers

import (
	"net/url"

	"net/http/pprof"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"gitlab.com/GigFlow/settlement-node/internal/config"
	"gitlab.com/GigFlow/settlement-node/internal/factory"
	"gitlab.com/GigFlow/settlement-node/internal/interfaces"
	"gitlab.com/GigFlow/settlement-node/internal/ledger"
	"gitlab.com/GigFlow/settlement-node/internal/reputation"
	"gitlab.com/GigFlow/settlement-node/internal/repositories/store"
)

type HTTPHandler struct {
	factory   *factory.ProjectFactory
	registry  *reputation.Registry
	bank      *ledger.Bank
	store     *store.Store
	authority common.Address
	publicUrl *url.URL
	cfg       *config.Config
	log       interfaces.ILogger
}

func NewHTTPHandler(f *factory.ProjectFactory, registry *reputation.Registry, bank *ledger.Bank, st *store.Store, authority common.Address, publicUrl *url.URL, cfg *config.Config, log interfaces.ILogger) *gin.Engine {
	handl := &HTTPHandler{
		factory:   f,
		registry:  registry,
		bank:      bank,
		store:     st,
		authority: authority,
		publicUrl: publicUrl,
		cfg:       cfg,
		log:       log,
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.GET("/healthcheck", handl.HealthCheck)
	r.GET("/config", handl.GetConfig)

	r.POST("/projects", handl.CreateProject)
	r.GET("/projects", handl.GetProjects)
	r.GET("/projects/:address", handl.GetProject)
	r.GET("/registry/:index", handl.GetProjectByIndex)
	r.POST("/projects/:address/approve", handl.ApproveMilestone)

	r.POST("/reputation", handl.MintReputation)
	r.GET("/reputation/tokens/:tokenID", handl.GetReputationOwner)
	r.GET("/reputation/balance/:address", handl.GetReputationBalance)
	r.GET("/reputation/pending", handl.GetPendingMints)

	r.GET("/events", handl.GetEvents)
	r.GET("/events/history", handl.GetEventHistory)

	r.POST("/accounts/:address/credit", handl.CreditAccount)
	r.GET("/accounts/:address/balance", handl.GetBalance)
	r.POST("/tokens/:token/approve", handl.ApproveAllowance)
	r.POST("/tokens/:token/pause", handl.PauseToken)
	r.POST("/tokens/:token/unpause", handl.UnpauseToken)

	r.Any("/debug/pprof/*action", gin.WrapF(pprof.Index))

	err := r.SetTrustedProxies(nil)
	if err != nil {
		panic(err)
	}

	return r
}

func (h *HTTPHandler) HealthCheck(ctx *gin.Context) {
	ctx.JSON(200, gin.H{
		"status":    "healthy",
		"version":   config.BuildVersion,
		"publicUrl": h.publicUrl.String(),
	})
}

func (h *HTTPHandler) GetConfig(ctx *gin.Context) {
	ctx.JSON(200, h.cfg.GetSanitized())
}
