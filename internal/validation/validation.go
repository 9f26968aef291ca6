// Package validation holds field checks for request input. Each check returns
// the normalized value and an empty message, or a zero value and a message
// safe to show the caller.
package validation

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mathieu-neron/modelmart/modelmart-go/internal/model"
)

// Field limits matching database schema constraints.
const (
	TxHashLen        = 66 // purchases.tx_hash CHAR(66)
	MinContentIDLen  = 10
	MaxContentIDLen  = 512
	MaxItemNameLen   = 200 // purchases.item_name VARCHAR(200)
	MaxPriceDecimals = 18
	MaxPriceLen      = 64
)

var (
	// txHashRe matches a 32-byte transaction hash.
	txHashRe = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)
	// priceRe matches a plain non-negative decimal: no sign, no exponent.
	priceRe = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)
)

// ValidateTxHash checks the transaction hash format. Case is preserved for
// the RPC call but the stored form is lowercase.
func ValidateTxHash(h string) (string, string) {
	h = strings.TrimSpace(h)
	if h == "" {
		return "", "txHash is required"
	}
	if !txHashRe.MatchString(h) {
		return "", "txHash must be 0x followed by 64 hex characters"
	}
	return strings.ToLower(h), ""
}

// ValidateItemID parses a path or body item id.
func ValidateItemID(raw string) (int64, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, "itemId is required"
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		return 0, "itemId must be a non-negative integer"
	}
	return id, ""
}

// ValidateContentID checks the content-addressed storage pointer.
func ValidateContentID(id string) (string, string) {
	id = strings.TrimSpace(id)
	if len(id) < MinContentIDLen {
		return "", "contentId must be at least 10 characters"
	}
	if len(id) > MaxContentIDLen {
		return "", "contentId is too long"
	}
	return id, ""
}

// ValidateItemName checks the display name length in characters.
func ValidateItemName(name string) (string, string) {
	name = strings.TrimSpace(name)
	n := utf8.RuneCountInString(name)
	if n == 0 {
		return "", "itemName is required"
	}
	if n > MaxItemNameLen {
		return "", "itemName must be at most 200 characters"
	}
	return name, ""
}

// ValidatePrice checks the price is a plain non-negative decimal string with
// at most 18 fractional digits.
func ValidatePrice(price string) (string, string) {
	price = strings.TrimSpace(price)
	if price == "" {
		return "", "itemPrice is required"
	}
	if len(price) > MaxPriceLen || !priceRe.MatchString(price) {
		return "", "itemPrice must be a non-negative decimal number"
	}
	if dot := strings.IndexByte(price, '.'); dot >= 0 && len(price)-dot-1 > MaxPriceDecimals {
		return "", "itemPrice has more than 18 decimal places"
	}
	return price, ""
}

// ValidateWalletAddress checks an optional 20-byte hex address and returns it
// lowercased. An empty address is valid.
func ValidateWalletAddress(addr string) (string, string) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "", ""
	}
	if !strings.HasPrefix(addr, "0x") || !common.IsHexAddress(addr) {
		return "", "walletAddress must be a 0x-prefixed 20-byte hex address"
	}
	return strings.ToLower(addr), ""
}

// ValidateVoteType checks the vote direction.
func ValidateVoteType(v model.VoteType) (model.VoteType, string) {
	v = model.VoteType(strings.ToLower(strings.TrimSpace(string(v))))
	if !v.Valid() {
		return "", "voteType must be \"up\" or \"down\""
	}
	return v, ""
}

// ValidateReason checks an optional downvote reason code.
func ValidateReason(reason string) (string, string) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return "", ""
	}
	if !model.ValidReasons[reason] {
		return "", "reason must be one of: inaccurate, low_quality, misleading, malicious, broken, spam, other"
	}
	return reason, ""
}
