package cmd

import (
	"os"
	"strings"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

// FileExists checks if a file exists and is readable
func FileExists(filePath string) bool {
	file, err := os.Open(filePath)
	if err != nil {
		return false
	}
	defer file.Close()
	return true
}

// SplitAddressList parses a comma separated list of hex addresses.
func SplitAddressList(s string) []ethcommon.Address {
	var addrs []ethcommon.Address
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		addrs = append(addrs, ethcommon.HexToAddress(part))
	}
	return addrs
}
