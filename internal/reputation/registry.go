package reputation

import (
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"gitlab.com/GigFlow/settlement-node/internal/interfaces"
)

var (
	ErrUnauthorized    = errors.New("caller is not a minting authority")
	ErrNonTransferable = errors.New("soul-bound: cannot transfer")
	ErrUnknownToken    = errors.New("unknown token")
)

// Registry mints one non-transferable credential per completed project.
// Token ids are sequential from zero and ownership never changes after
// mint.
type Registry struct {
	authority common.Address
	minters   map[common.Address]bool

	mutex   sync.RWMutex
	nextID  uint64
	owners  map[uint64]common.Address
	balance map[common.Address]uint64

	log interfaces.ILogger
}

func NewRegistry(authority common.Address, log interfaces.ILogger) *Registry {
	return &Registry{
		authority: authority,
		minters:   map[common.Address]bool{},
		owners:    map[uint64]common.Address{},
		balance:   map[common.Address]uint64{},
		log:       log,
	}
}

// Authorize grants mint rights to an additional identity, the factory's
// completion path in practice
func (r *Registry) Authorize(minter common.Address) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.minters[minter] = true
}

// Mint assigns the next sequential token id to the recipient
func (r *Registry) Mint(caller, recipient common.Address) (uint64, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if caller != r.authority && !r.minters[caller] {
		return 0, ErrUnauthorized
	}

	tokenID := r.nextID
	r.nextID++
	r.owners[tokenID] = recipient
	r.balance[recipient]++

	r.log.Infof("minted reputation token %d for %s", tokenID, recipient.Hex())
	return tokenID, nil
}

// Transfer always fails: the credential is soul-bound. This holds for
// every caller including the owner and the minting authority, regardless
// of whether the token exists.
func (r *Registry) Transfer(caller common.Address, tokenID uint64, from, to common.Address) error {
	return ErrNonTransferable
}

func (r *Registry) OwnerOf(tokenID uint64) (common.Address, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	owner, ok := r.owners[tokenID]
	if !ok {
		return common.Address{}, ErrUnknownToken
	}
	return owner, nil
}

// BalanceOf returns the credential count of an owner, displayed by the
// gig UI as the freelancer's reputation
func (r *Registry) BalanceOf(owner common.Address) uint64 {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.balance[owner]
}

// TotalMinted returns the number of credentials issued so far
func (r *Registry) TotalMinted() uint64 {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.nextID
}
