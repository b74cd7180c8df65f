package httphandlers

import (
	"github.com/gin-gonic/gin"
)

// CreditAccount mints value into an account. Operator tooling for
// development and staging environments, the counterpart of funding a
// wallet on a test network.
func (h *HTTPHandler) CreditAccount(ctx *gin.Context) {
	account, err := parseAddress(ctx.Param("address"))
	if err != nil {
		ctx.JSON(400, gin.H{"error": err.Error()})
		return
	}

	var req CreditRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(400, gin.H{"error": err.Error()})
		return
	}
	asset, err := parseAsset(req.Asset)
	if err != nil {
		ctx.JSON(400, gin.H{"error": err.Error()})
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		ctx.JSON(400, gin.H{"error": err.Error()})
		return
	}

	if err := h.bank.Credit(asset, account, amount); err != nil {
		ctx.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(200, gin.H{"account": account.Hex(), "balance": h.bank.BalanceOf(asset, account).String()})
}

func (h *HTTPHandler) GetBalance(ctx *gin.Context) {
	account, err := parseAddress(ctx.Param("address"))
	if err != nil {
		ctx.JSON(400, gin.H{"error": err.Error()})
		return
	}

	asset, err := parseAsset(AssetDTO{Kind: ctx.DefaultQuery("kind", "native"), Token: ctx.Query("token")})
	if err != nil {
		ctx.JSON(400, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(200, gin.H{"account": account.Hex(), "asset": asset.String(), "balance": h.bank.BalanceOf(asset, account).String()})
}

func (h *HTTPHandler) ApproveAllowance(ctx *gin.Context) {
	token, err := parseAddress(ctx.Param("token"))
	if err != nil {
		ctx.JSON(400, gin.H{"error": err.Error()})
		return
	}

	var req ApproveAllowanceRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(400, gin.H{"error": err.Error()})
		return
	}
	owner, err := parseAddress(req.Owner)
	if err != nil {
		ctx.JSON(400, gin.H{"error": err.Error()})
		return
	}
	spender, err := parseAddress(req.Spender)
	if err != nil {
		ctx.JSON(400, gin.H{"error": err.Error()})
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		ctx.JSON(400, gin.H{"error": err.Error()})
		return
	}

	if err := h.bank.Approve(token, owner, spender, amount); err != nil {
		ctx.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(200, gin.H{"token": token.Hex(), "allowance": h.bank.Allowance(token, owner, spender).String()})
}

func (h *HTTPHandler) PauseToken(ctx *gin.Context) {
	token, err := parseAddress(ctx.Param("token"))
	if err != nil {
		ctx.JSON(400, gin.H{"error": err.Error()})
		return
	}

	h.bank.Pause(token)
	ctx.JSON(200, gin.H{"token": token.Hex(), "paused": true})
}

func (h *HTTPHandler) UnpauseToken(ctx *gin.Context) {
	token, err := parseAddress(ctx.Param("token"))
	if err != nil {
		ctx.JSON(400, gin.H{"error": err.Error()})
		return
	}

	h.bank.Unpause(token)
	ctx.JSON(200, gin.H{"token": token.Hex(), "paused": false})
}
