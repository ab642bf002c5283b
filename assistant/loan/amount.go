// Package loan turns a captured utterance into a canonical loan tier.
package loan

import (
	"strconv"
	"strings"
)

const (
	TierHigh    int64 = 500000
	TierDefault int64 = 100000
)

// magnitudeTokens mark the five-lakh tier in any supported script.
var magnitudeTokens = []string{"5", "५"}

type Request struct {
	Amount  int64  `json:"amount"`
	Display string `json:"display"`
}

// Resolve maps an utterance to a tier: any magnitude token selects TierHigh,
// everything else TierDefault.
func Resolve(utterance string) Request {
	amount := TierDefault
	for _, tok := range magnitudeTokens {
		if strings.Contains(utterance, tok) {
			amount = TierHigh
			break
		}
	}
	return Request{Amount: amount, Display: FormatRupees(amount)}
}

// FormatRupees renders an amount with Indian digit grouping, e.g. "₹ 5,00,000".
func FormatRupees(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)
	if len(digits) <= 3 {
		return "₹ " + sign + digits
	}

	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var groups []string
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	if head != "" {
		groups = append([]string{head}, groups...)
	}
	return "₹ " + sign + strings.Join(groups, ",") + "," + tail
}
