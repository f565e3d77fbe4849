package parse

import (
	"math"
	"strconv"
	"strings"
)

// msat per unit of each BOLT-11 amount multiplier; 0 is the bare bitcoin amount.
var invoiceMultipliers = map[byte]int64{
	0:   100_000_000_000,
	'm': 100_000_000,
	'u': 100_000,
	'n': 100,
}

// DecodeInvoiceAmount reads the amount of a BOLT-11 invoice from its human
// readable part, in millisatoshis. Invoices without an amount report false.
// The signature and the tagged fields are not checked.
func DecodeInvoiceAmount(invoice string) (int64, bool) {
	s := strings.ToLower(strings.TrimSpace(invoice))
	s = strings.TrimPrefix(s, "lightning:")

	// The bech32 data part cannot contain '1', so the last one is the separator.
	sep := strings.LastIndexByte(s, '1')
	if sep < 0 || !strings.HasPrefix(s, "ln") {
		return 0, false
	}
	hrp := s[2:sep]

	i := 0
	for i < len(hrp) && hrp[i] >= 'a' && hrp[i] <= 'z' {
		i++
	}
	if i == 0 {
		return 0, false
	}
	amount := hrp[i:]
	if amount == "" {
		return 0, false
	}

	var multiplier byte
	if last := amount[len(amount)-1]; last < '0' || last > '9' {
		multiplier = last
		amount = amount[:len(amount)-1]
	}
	if amount == "" {
		return 0, false
	}
	for j := 0; j < len(amount); j++ {
		if amount[j] < '0' || amount[j] > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(amount, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}

	if multiplier == 'p' {
		// pico-bitcoin is a tenth of a millisatoshi
		if n%10 != 0 {
			return 0, false
		}
		return n / 10, true
	}
	unit, ok := invoiceMultipliers[multiplier]
	if !ok {
		return 0, false
	}
	if n > math.MaxInt64/unit {
		return 0, false
	}
	return n * unit, true
}
