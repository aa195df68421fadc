// Bitcoin address codec: public key -> P2PKH (Base58Check) and
// P2WPKH (Bech32, BIP-173) address strings. Pure functions, no state.

package btcaddr

import (
	"crypto/sha256"
	"errors"
	"math/big"
	"strings"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"golang.org/x/crypto/ripemd160"
)

var (
	ErrorBadPubKeyLength = errors.New("public key must be 33 (compressed) or 65 (uncompressed) bytes")
	ErrorBadBase58Char   = errors.New("string contains a character outside the base58 alphabet")
	ErrorBadChecksum     = errors.New("base58check checksum mismatch")
	ErrorAddressTooShort = errors.New("decoded address payload too short")
)

const (
	// version bytes for P2PKH
	VersionP2PKHMainNet = 0x00
	VersionP2PKHTestNet = 0x6f

	base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"
	bech32Charset  = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"
)

// BIP-173 polymod generator constants.
var bech32Generator = [5]uint32{0x3b6a57b2, 0x26508e6d, 0x1ea119fa, 0x3d4233dd, 0x2a1462b3}

// Hash160 is SHA-256 followed by RIPEMD-160 over a 33- or 65-byte
// public key.
func Hash160(pubKey []byte) ([20]byte, error) {
	var h160 [20]byte
	if len(pubKey) != 33 && len(pubKey) != 65 {
		return h160, ErrorBadPubKeyLength
	}

	sha := sha256.Sum256(pubKey)
	ripe := ripemd160.New()
	ripe.Write(sha[:])
	copy(h160[:], ripe.Sum(nil))
	return h160, nil
}

// EncodeP2PKH produces the Base58Check legacy address for a 160-bit
// public key hash. The checksum is the first 4 bytes of the double
// SHA-256 over version+hash.
func EncodeP2PKH(h160 [20]byte, mainnet bool) string {
	version := byte(VersionP2PKHTestNet)
	if mainnet {
		version = VersionP2PKHMainNet
	}

	payload := make([]byte, 0, 25)
	payload = append(payload, version)
	payload = append(payload, h160[:]...)
	check := chainhash.DoubleHashB(payload)
	payload = append(payload, check[:4]...)

	return base58Encode(payload)
}

// DecodeBase58Check decodes a Base58Check string and validates its
// checksum, returning the version byte and the payload.
func DecodeBase58Check(addr string) (byte, []byte, error) {
	decoded, err := base58Decode(addr)
	if err != nil {
		return 0, nil, err
	}
	if len(decoded) < 5 {
		return 0, nil, ErrorAddressTooShort
	}

	payload := decoded[:len(decoded)-4]
	check := chainhash.DoubleHashB(payload)
	for i := 0; i < 4; i++ {
		if check[i] != decoded[len(payload)+i] {
			return 0, nil, ErrorBadChecksum
		}
	}

	return payload[0], payload[1:], nil
}

// EncodeP2WPKH produces the Bech32 native segwit (witness version 0)
// address for a 160-bit public key hash.
func EncodeP2WPKH(h160 [20]byte, mainnet bool) (string, error) {
	hrp := "tb"
	if mainnet {
		hrp = "bc"
	}

	// witness version 0 followed by the hash regrouped into 5-bit symbols
	data := make([]byte, 0, 33)
	data = append(data, 0)
	data = append(data, regroup8to5(h160[:])...)
	data = append(data, bech32Checksum(hrp, data)...)

	var sb strings.Builder
	sb.WriteString(hrp)
	sb.WriteByte('1')
	for _, v := range data {
		sb.WriteByte(bech32Charset[v])
	}
	return sb.String(), nil
}

// PubKeyToP2PKH composes Hash160 + EncodeP2PKH.
func PubKeyToP2PKH(pubKey []byte, mainnet bool) (string, error) {
	h160, err := Hash160(pubKey)
	if err != nil {
		return "", err
	}
	return EncodeP2PKH(h160, mainnet), nil
}

// PubKeyToP2WPKH composes Hash160 + EncodeP2WPKH.
func PubKeyToP2WPKH(pubKey []byte, mainnet bool) (string, error) {
	h160, err := Hash160(pubKey)
	if err != nil {
		return "", err
	}
	return EncodeP2WPKH(h160, mainnet)
}

// base58Encode is big-number base conversion over the input bytes.
// Leading zero bytes are preserved as leading '1' characters.
func base58Encode(input []byte) string {
	x := new(big.Int).SetBytes(input)
	base := big.NewInt(58)
	mod := new(big.Int)

	out := make([]byte, 0, len(input)*2)
	for x.Sign() > 0 {
		x.DivMod(x, base, mod)
		out = append(out, base58Alphabet[mod.Int64()])
	}
	for _, b := range input {
		if b != 0 {
			break
		}
		out = append(out, '1')
	}

	// digits were produced least-significant first
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return string(out)
}

func base58Decode(s string) ([]byte, error) {
	x := new(big.Int)
	base := big.NewInt(58)

	for _, c := range s {
		idx := strings.IndexRune(base58Alphabet, c)
		if idx < 0 {
			return nil, ErrorBadBase58Char
		}
		x.Mul(x, base)
		x.Add(x, big.NewInt(int64(idx)))
	}

	decoded := x.Bytes()

	// leading '1' characters are leading zero bytes
	nZeros := 0
	for _, c := range s {
		if c != '1' {
			break
		}
		nZeros++
	}

	out := make([]byte, nZeros+len(decoded))
	copy(out[nZeros:], decoded)
	return out, nil
}

// regroup8to5 repacks bytes into 5-bit groups, zero-padding the final
// group on the right.
func regroup8to5(data []byte) []byte {
	out := make([]byte, 0, (len(data)*8+4)/5)
	acc := 0
	bits := 0
	for _, b := range data {
		acc = acc<<8 | int(b)
		bits += 8
		for bits >= 5 {
			bits -= 5
			out = append(out, byte(acc>>bits)&31)
		}
	}
	if bits > 0 {
		out = append(out, byte(acc<<(5-bits))&31)
	}
	return out
}

func bech32Polymod(values []byte) uint32 {
	chk := uint32(1)
	for _, v := range values {
		top := chk >> 25
		chk = (chk&0x1ffffff)<<5 ^ uint32(v)
		for i := 0; i < 5; i++ {
			if (top>>uint(i))&1 == 1 {
				chk ^= bech32Generator[i]
			}
		}
	}
	return chk
}

func bech32HrpExpand(hrp string) []byte {
	out := make([]byte, 0, len(hrp)*2+1)
	for i := 0; i < len(hrp); i++ {
		out = append(out, hrp[i]>>5)
	}
	out = append(out, 0)
	for i := 0; i < len(hrp); i++ {
		out = append(out, hrp[i]&31)
	}
	return out
}

// bech32Checksum derives the six 5-bit checksum symbols for hrp+data.
func bech32Checksum(hrp string, data []byte) []byte {
	values := append(bech32HrpExpand(hrp), data...)
	values = append(values, 0, 0, 0, 0, 0, 0)
	polymod := bech32Polymod(values) ^ 1

	chk := make([]byte, 6)
	for i := 0; i < 6; i++ {
		chk[i] = byte(polymod>>uint(5*(5-i))) & 31
	}
	return chk
}
