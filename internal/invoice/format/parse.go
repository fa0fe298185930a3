package format

import (
	"strconv"
	"strings"
)

// Number is a parsed invoice number.
type Number struct {
	Prefix string
	Date   string
	Serial int64
}

// ParseInvoiceNumber accepts PREFIX-YYYYMMDD-SERIAL where the serial is any
// run of digits.
func ParseInvoiceNumber(s string) (Number, bool) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 3 {
		return Number{}, false
	}
	prefix, date, serial := parts[0], parts[1], parts[2]
	if prefix == "" || len(date) != 8 || !allDigits(date) || !allDigits(serial) {
		return Number{}, false
	}
	n, err := strconv.ParseInt(serial, 10, 64)
	if err != nil {
		return Number{}, false
	}
	return Number{Prefix: prefix, Date: date, Serial: n}, true
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
