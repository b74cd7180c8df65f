package httphandlers

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"gitlab.com/GigFlow/settlement-node/internal/escrow"
	"gitlab.com/GigFlow/settlement-node/internal/factory"
	"gitlab.com/GigFlow/settlement-node/internal/ledger"
	"gitlab.com/GigFlow/settlement-node/internal/reputation"
	"gitlab.com/GigFlow/settlement-node/internal/repositories/store"
)

type AssetDTO struct {
	Kind  string `json:"kind" binding:"required,oneof=native token"`
	Token string `json:"token"`
}

type CreateProjectRequest struct {
	Caller     string   `json:"caller" binding:"required"`
	Freelancer string   `json:"freelancer" binding:"required"`
	Asset      AssetDTO `json:"asset" binding:"required"`
	Milestones []string `json:"milestones" binding:"required"`
	Funding    string   `json:"funding" binding:"required"`
}

type CreateProjectResponse struct {
	Address string `json:"address"`
	Index   int    `json:"index"`
}

type ApproveRequest struct {
	Caller string `json:"caller" binding:"required"`
}

type MintRequest struct {
	Caller    string `json:"caller" binding:"required"`
	Recipient string `json:"recipient" binding:"required"`
	// Project ties a replayed mint back to its pending record
	Project string `json:"project"`
}

type CreditRequest struct {
	Asset  AssetDTO `json:"asset" binding:"required"`
	Amount string   `json:"amount" binding:"required"`
}

type ApproveAllowanceRequest struct {
	Owner   string `json:"owner" binding:"required"`
	Spender string `json:"spender" binding:"required"`
	Amount  string `json:"amount" binding:"required"`
}

type Project struct {
	Address       string   `json:"address"`
	Client        string   `json:"client"`
	Freelancer    string   `json:"freelancer"`
	Asset         AssetDTO `json:"asset"`
	Milestones    []string `json:"milestones"`
	ReleasedCount int      `json:"releasedCount"`
	Completed     bool     `json:"completed"`
}

func mapProject(e *escrow.Escrow) *Project {
	milestones := e.Milestones()
	amounts := make([]string, len(milestones))
	for i, m := range milestones {
		amounts[i] = m.String()
	}

	asset := e.Asset()
	dto := AssetDTO{Kind: string(asset.Kind)}
	if !asset.IsNative() {
		dto.Token = asset.Token.Hex()
	}

	return &Project{
		Address:       e.GetID(),
		Client:        e.Client().Hex(),
		Freelancer:    e.Freelancer().Hex(),
		Asset:         dto,
		Milestones:    amounts,
		ReleasedCount: e.ReleasedCount(),
		Completed:     e.Completed(),
	}
}

var (
	errInvalidAddress = errors.New("invalid address")
	errInvalidNumber  = errors.New("invalid numeric value")
	errTokenRequired  = errors.New("token address required for token asset")
)

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, errInvalidAddress
	}
	return common.HexToAddress(s), nil
}

func parseAmount(s string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, errInvalidNumber
	}
	return amount, nil
}

func parseAmounts(values []string) ([]*big.Int, error) {
	out := make([]*big.Int, len(values))
	for i, v := range values {
		amount, err := parseAmount(v)
		if err != nil {
			return nil, err
		}
		out[i] = amount
	}
	return out, nil
}

func parseAsset(dto AssetDTO) (ledger.Asset, error) {
	if dto.Kind == string(ledger.AssetToken) {
		token, err := parseAddress(dto.Token)
		if err != nil {
			return ledger.Asset{}, errTokenRequired
		}
		return ledger.Token(token), nil
	}
	return ledger.Native(), nil
}

// errStatus maps engine error kinds onto HTTP status codes. Settlement
// rejections that are retriable by the caller (payment problems) use 402,
// state conflicts 409, everything unrecognized falls back to 400.
func errStatus(err error) int {
	switch {
	case errors.Is(err, escrow.ErrUnauthorized),
		errors.Is(err, reputation.ErrUnauthorized):
		return 403
	case errors.Is(err, factory.ErrIndexOutOfRange),
		errors.Is(err, factory.ErrProjectNotFound),
		errors.Is(err, reputation.ErrUnknownToken),
		errors.Is(err, store.ErrNotFound):
		return 404
	case errors.Is(err, escrow.ErrAlreadyCompleted),
		errors.Is(err, escrow.ErrReentrantCall),
		errors.Is(err, reputation.ErrNonTransferable):
		return 409
	case errors.Is(err, ledger.ErrInsufficientBalance),
		errors.Is(err, ledger.ErrAllowanceExceeded),
		errors.Is(err, ledger.ErrTransferRejected):
		return 402
	default:
		return 400
	}
}
