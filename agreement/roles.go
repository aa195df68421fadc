package agreement

import (
	"sync"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleRelayer Role = "relayer"
)

// RoleStore is the capability predicate checked at the top of every
// mutating custody operation. Any role backend works as long as it can
// answer "does this actor hold this role".
type RoleStore interface {
	HasRole(actor ethcommon.Address, role Role) bool
}

// ACL is a set-based RoleStore.
type ACL struct {
	mu    sync.RWMutex
	roles map[Role]map[ethcommon.Address]bool
}

func NewACL() *ACL {
	return &ACL{roles: make(map[Role]map[ethcommon.Address]bool)}
}

func (a *ACL) Grant(actor ethcommon.Address, role Role) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.roles[role] == nil {
		a.roles[role] = make(map[ethcommon.Address]bool)
	}
	a.roles[role][actor] = true
}

func (a *ACL) Revoke(actor ethcommon.Address, role Role) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.roles[role] != nil {
		delete(a.roles[role], actor)
	}
}

func (a *ACL) HasRole(actor ethcommon.Address, role Role) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.roles[role][actor]
}
