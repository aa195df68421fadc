package custody

import (
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"

	"github.com/TEENet-io/btc-custody-go/common"
)

func TestDepositRegistry(t *testing.T) {
	sqlDB := getMemoryDB()
	defer sqlDB.Close()

	registry, err := NewDepositRegistry(sqlDB)
	assert.NoError(t, err)
	defer registry.Close()

	txHash := ethcommon.Hash(common.RandBytes32())

	ok, err := registry.IsDeposited(txHash, 0)
	assert.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, registry.MarkDeposited(txHash, 0))
	// marking twice is fine
	assert.NoError(t, registry.MarkDeposited(txHash, 0))

	ok, err = registry.IsDeposited(txHash, 0)
	assert.NoError(t, err)
	assert.True(t, ok)

	// a different output of the same tx is not recognized
	ok, err = registry.IsDeposited(txHash, 1)
	assert.NoError(t, err)
	assert.False(t, ok)
}
