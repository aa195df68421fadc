package agreement

import (
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

func TestACLGrantRevoke(t *testing.T) {
	acl := NewACL()
	alice := ethcommon.BytesToAddress([]byte{0x01})
	bob := ethcommon.BytesToAddress([]byte{0x02})

	assert.False(t, acl.HasRole(alice, RoleAdmin))

	acl.Grant(alice, RoleAdmin)
	acl.Grant(bob, RoleRelayer)
	assert.True(t, acl.HasRole(alice, RoleAdmin))
	assert.False(t, acl.HasRole(alice, RoleRelayer))
	assert.True(t, acl.HasRole(bob, RoleRelayer))

	acl.Revoke(alice, RoleAdmin)
	assert.False(t, acl.HasRole(alice, RoleAdmin))

	// revoking an absent role is a no-op
	acl.Revoke(alice, RoleAdmin)
	acl.Revoke(bob, RoleAdmin)
	assert.True(t, acl.HasRole(bob, RoleRelayer))
}
