package questdomain

import "strings"

// NormalizePhone keeps digits and '+', then rewrites 11-digit Russian numbers
// into +7 form. Other inputs are returned with only the filtering applied.
func NormalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '+' {
			b.WriteRune(r)
		}
	}
	p := b.String()

	if len(p) == 11 && allDigits(p) {
		switch p[0] {
		case '8':
			return "+7" + p[1:]
		case '7':
			return "+" + p
		}
	}
	return p
}

// StrictPhone normalizes raw and accepts only the +7XXXXXXXXXX form.
func StrictPhone(raw string) (string, bool) {
	p := NormalizePhone(raw)
	if len(p) == 10 && allDigits(p) && p[0] == '9' {
		p = "+7" + p
	}
	if len(p) != 12 || !strings.HasPrefix(p, "+7") || !allDigits(p[1:]) {
		return "", false
	}
	return p, true
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
