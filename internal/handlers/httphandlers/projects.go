package httphandlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gitlab.com/GigFlow/settlement-node/internal/escrow"
	"gitlab.com/GigFlow/settlement-node/internal/factory"
	"golang.org/x/exp/slices"
)

func (h *HTTPHandler) CreateProject(ctx *gin.Context) {
	var req CreateProjectRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(400, gin.H{"error": err.Error()})
		return
	}

	client, err := parseAddress(req.Caller)
	if err != nil {
		ctx.JSON(400, gin.H{"error": err.Error()})
		return
	}
	freelancer, err := parseAddress(req.Freelancer)
	if err != nil {
		ctx.JSON(400, gin.H{"error": err.Error()})
		return
	}
	asset, err := parseAsset(req.Asset)
	if err != nil {
		ctx.JSON(400, gin.H{"error": err.Error()})
		return
	}
	milestones, err := parseAmounts(req.Milestones)
	if err != nil {
		ctx.JSON(400, gin.H{"error": err.Error()})
		return
	}
	funding, err := parseAmount(req.Funding)
	if err != nil {
		ctx.JSON(400, gin.H{"error": err.Error()})
		return
	}

	e, index, err := h.factory.CreateProject(ctx.Request.Context(), client, freelancer, asset, milestones, funding)
	if err != nil {
		ctx.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(201, CreateProjectResponse{
		Address: e.GetID(),
		Index:   index,
	})
}

func (h *HTTPHandler) GetProjects(ctx *gin.Context) {
	data := []Project{}
	h.factory.Range(func(e *escrow.Escrow) bool {
		data = append(data, *mapProject(e))
		return true
	})

	slices.SortStableFunc(data, func(a Project, b Project) int {
		return strings.Compare(a.Address, b.Address)
	})

	ctx.JSON(200, data)
}

func (h *HTTPHandler) GetProject(ctx *gin.Context) {
	addr, err := parseAddress(ctx.Param("address"))
	if err != nil {
		ctx.JSON(400, gin.H{"error": err.Error()})
		return
	}

	e, ok := h.factory.GetProject(addr)
	if !ok {
		ctx.JSON(404, gin.H{"error": factory.ErrProjectNotFound.Error()})
		return
	}

	ctx.JSON(200, mapProject(e))
}

func (h *HTTPHandler) GetProjectByIndex(ctx *gin.Context) {
	index, err := strconv.Atoi(ctx.Param("index"))
	if err != nil {
		ctx.JSON(400, gin.H{"error": err.Error()})
		return
	}

	addr, err := h.factory.DeployedProjectAt(index)
	if err != nil {
		ctx.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(200, gin.H{"index": index, "address": addr.Hex()})
}

func (h *HTTPHandler) ApproveMilestone(ctx *gin.Context) {
	addr, err := parseAddress(ctx.Param("address"))
	if err != nil {
		ctx.JSON(400, gin.H{"error": err.Error()})
		return
	}

	var req ApproveRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(400, gin.H{"error": err.Error()})
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		ctx.JSON(400, gin.H{"error": err.Error()})
		return
	}

	if err := h.factory.ApproveMilestone(ctx.Request.Context(), addr, caller); err != nil {
		ctx.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}

	e, _ := h.factory.GetProject(addr)
	ctx.JSON(200, mapProject(e))
}

func (h *HTTPHandler) GetEvents(ctx *gin.Context) {
	ctx.JSON(200, h.factory.Feed().Recent())
}

func (h *HTTPHandler) GetEventHistory(ctx *gin.Context) {
	if h.store == nil {
		ctx.JSON(200, []any{})
		return
	}

	limit := 100
	if q := ctx.Query("limit"); q != "" {
		parsed, err := strconv.Atoi(q)
		if err != nil {
			ctx.JSON(400, gin.H{"error": err.Error()})
			return
		}
		limit = parsed
	}

	events, err := h.store.ListEvents(ctx.Request.Context(), limit)
	if err != nil {
		ctx.JSON(500, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(200, events)
}
