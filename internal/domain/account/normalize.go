package account

import "strings"

// NormalizeEmail lowercases and trims an email address. Returns "" when the
// input does not look like a deliverable address (no local part, no @, or a
// domain without a dot); callers treat "" as "skip this identity channel".
func NormalizeEmail(email string) string {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return ""
	}
	at := strings.LastIndex(normalized, "@")
	if at <= 0 || at == len(normalized)-1 {
		return ""
	}
	domain := normalized[at+1:]
	if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return ""
	}
	return normalized
}

// NormalizeTaxID strips everything but digits from a tax number. Russian tax
// IDs are 10 digits for organizations and 12 for individuals; anything else
// returns "" and the tax-id channel is skipped.
func NormalizeTaxID(taxID string) string {
	var b strings.Builder
	for _, r := range taxID {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) != 10 && len(digits) != 12 {
		return ""
	}
	return digits
}
