package chain

import (
	"net/url"
	"strings"
)

// IsNonceTooLow reports whether a node rejected a transaction because its
// nonce was already used. Different clients word this differently.
func IsNonceTooLow(err error) bool {
	if err == nil {
		return false
	}
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "nonce too low") ||
		strings.Contains(lower, "nonce is too low") ||
		strings.Contains(lower, "already known") ||
		strings.Contains(lower, "replacement transaction underpriced")
}

// IsInsufficientFunds reports whether a node rejected a transaction for lack of balance.
func IsInsufficientFunds(err error) bool {
	if err == nil {
		return false
	}
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "insufficient funds") ||
		strings.Contains(lower, "insufficient balance")
}

// isRejection reports whether err is a node's verdict on the transaction
// itself. Another endpoint would answer the same way.
func isRejection(err error) bool {
	if IsNonceTooLow(err) || IsInsufficientFunds(err) {
		return true
	}
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "execution reverted") ||
		strings.Contains(lower, "intrinsic gas too low") ||
		strings.Contains(lower, "gas limit") ||
		strings.Contains(lower, "transaction underpriced") ||
		strings.Contains(lower, "fee cap")
}

// MaskURL hides path and query of an RPC URL, which commonly carry API keys.
func MaskURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		if len(raw) > 24 {
			return raw[:24] + "..."
		}
		return raw
	}
	if (u.Path != "" && u.Path != "/") || u.RawQuery != "" {
		return u.Scheme + "://" + u.Host + "/..."
	}
	return u.Scheme + "://" + u.Host
}
