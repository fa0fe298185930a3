// Package format renders and parses invoice numbers of the form
// PREFIX-YYYYMMDD-SSSS.
package format

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var seqPadRe = regexp.MustCompile(`\{SEQ(\d+)\}`)

const DefaultInvoiceNumberTemplate = "{PREFIX}-{YYYY}{MM}{DD}-{SEQ4}"

// TemplateForWidth returns the default template with a serial padded to width.
func TemplateForWidth(width int) string {
	if width <= 0 {
		return DefaultInvoiceNumberTemplate
	}
	return "{PREFIX}-{YYYY}{MM}{DD}-{SEQ" + strconv.Itoa(width) + "}"
}

// FormatInvoiceNumber renders template for a prefix, issue date and serial.
// Padded serials that outgrow their width are printed in full.
func FormatInvoiceNumber(template, prefix string, issuedAt time.Time, seq int64) (string, error) {
	if template == "" {
		return "", fmt.Errorf("invoice number template is empty")
	}
	if seq <= 0 {
		return "", fmt.Errorf("invalid invoice sequence: %d", seq)
	}
	if strings.Contains(template, "{PREFIX}") {
		if prefix == "" {
			return "", fmt.Errorf("invoice number prefix is empty")
		}
		if strings.ContainsAny(prefix, "-{}") {
			return "", fmt.Errorf("invalid invoice number prefix %q", prefix)
		}
	}

	out := strings.ReplaceAll(template, "{PREFIX}", prefix)

	out = strings.ReplaceAll(out, "{YYYY}", issuedAt.Format("2006"))
	out = strings.ReplaceAll(out, "{YY}", issuedAt.Format("06"))
	out = strings.ReplaceAll(out, "{MM}", issuedAt.Format("01"))
	out = strings.ReplaceAll(out, "{DD}", issuedAt.Format("02"))

	out = strings.ReplaceAll(out, "{SEQ}", strconv.FormatInt(seq, 10))
	out = seqPadRe.ReplaceAllStringFunc(out, func(m string) string {
		match := seqPadRe.FindStringSubmatch(m)
		width, err := strconv.Atoi(match[1])
		if err != nil || width <= 0 {
			return m
		}
		return fmt.Sprintf("%0*d", width, seq)
	})

	if strings.ContainsAny(out, "{}") {
		return "", fmt.Errorf("unresolved token in invoice format: %s", out)
	}
	return out, nil
}
