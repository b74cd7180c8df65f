package httphandlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gitlab.com/GigFlow/settlement-node/internal/repositories/store"
)

// MintReputation is the restricted minting interface. It doubles as the
// external replay path for completions whose automatic mint failed: a
// request carrying the project address clears the matching pending record
// and persists the credential, so the audit store converges with the
// registry.
func (h *HTTPHandler) MintReputation(ctx *gin.Context) {
	var req MintRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(400, gin.H{"error": err.Error()})
		return
	}

	caller, err := parseAddress(req.Caller)
	if err != nil {
		ctx.JSON(400, gin.H{"error": err.Error()})
		return
	}
	recipient, err := parseAddress(req.Recipient)
	if err != nil {
		ctx.JSON(400, gin.H{"error": err.Error()})
		return
	}
	project := ""
	if req.Project != "" {
		addr, err := parseAddress(req.Project)
		if err != nil {
			ctx.JSON(400, gin.H{"error": err.Error()})
			return
		}
		project = addr.Hex()
	}

	tokenID, err := h.registry.Mint(caller, recipient)
	if err != nil {
		ctx.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}

	if h.store != nil {
		if err := h.store.InsertCredential(ctx.Request.Context(), store.Credential{
			TokenID:  tokenID,
			Owner:    recipient.Hex(),
			Project:  project,
			MintedAt: time.Now(),
		}); err != nil {
			h.log.Errorf("cannot persist credential %d: %s", tokenID, err)
		}
		if project != "" {
			if err := h.store.ClearPendingMint(ctx.Request.Context(), project); err != nil {
				h.log.Errorf("cannot clear pending mint for %s: %s", project, err)
			}
		}
	}

	ctx.JSON(201, gin.H{"tokenId": tokenID, "owner": recipient.Hex()})
}

func (h *HTTPHandler) GetPendingMints(ctx *gin.Context) {
	if h.store == nil {
		ctx.JSON(200, []any{})
		return
	}

	pending, err := h.store.ListPendingMints(ctx.Request.Context())
	if err != nil {
		ctx.JSON(500, gin.H{"error": err.Error()})
		return
	}
	if pending == nil {
		pending = []store.PendingMint{}
	}
	ctx.JSON(200, pending)
}

func (h *HTTPHandler) GetReputationOwner(ctx *gin.Context) {
	tokenID, err := strconv.ParseUint(ctx.Param("tokenID"), 10, 64)
	if err != nil {
		ctx.JSON(400, gin.H{"error": err.Error()})
		return
	}

	owner, err := h.registry.OwnerOf(tokenID)
	if err != nil {
		ctx.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(200, gin.H{"tokenId": tokenID, "owner": owner.Hex()})
}

func (h *HTTPHandler) GetReputationBalance(ctx *gin.Context) {
	owner, err := parseAddress(ctx.Param("address"))
	if err != nil {
		ctx.JSON(400, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(200, gin.H{"owner": owner.Hex(), "balance": h.registry.BalanceOf(owner)})
}
