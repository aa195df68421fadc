package common

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
)

// IsValidBtcAddress checks an address string against the reference decoder.
func IsValidBtcAddress(address string, cfg *chaincfg.Params) bool {
	if _, err := btcutil.DecodeAddress(address, cfg); err != nil {
		return false
	}

	return true
}

func MainNetParams() *chaincfg.Params {
	return &chaincfg.MainNetParams
}

func TestNetParams() *chaincfg.Params {
	return &chaincfg.TestNet3Params
}

func RegtestParams() *chaincfg.Params {
	return &chaincfg.RegressionNetParams
}
