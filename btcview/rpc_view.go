// RPC-backed agreement.BitcoinView. Asks a bitcoin node for the header
// hash accepted at a given height.

package btcview

import (
	"github.com/btcsuite/btcd/rpcclient"
	ethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/TEENet-io/btc-custody-go/merkle"
)

type RpcViewConfig struct {
	ServerAddr string // ip address of server
	Port       string // port of server
	Username   string
	Pwd        string
}

// Wrapper of btc rpc client, narrowed to the view the custody core needs.
type RpcView struct {
	client *rpcclient.Client
}

func NewRpcView(cfg *RpcViewConfig) (*RpcView, error) {
	client, err := rpcclient.New(&rpcclient.ConnConfig{
		Host:         cfg.ServerAddr + ":" + cfg.Port,
		User:         cfg.Username,
		Pass:         cfg.Pwd,
		HTTPPostMode: true, // original bitcoin only supports HTTP POST mode
		DisableTLS:   true, // original bitcoin does not support TLS
	}, nil)
	if err != nil {
		return nil, err
	}

	return &RpcView{client: client}, nil
}

func (v *RpcView) Close() {
	v.client.Shutdown()
}

// BlockHash returns the header hash at height in display byte order.
func (v *RpcView) BlockHash(height uint64) (ethcommon.Hash, error) {
	hash, err := v.client.GetBlockHash(int64(height))
	if err != nil {
		return ethcommon.Hash{}, err
	}

	// chainhash stores internal byte order
	return ethcommon.Hash(merkle.Reverse32([32]byte(*hash))), nil
}
