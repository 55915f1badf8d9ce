package questdomain

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const defaultTeamPrefix = "Team №"

// MinTeamNameLength is the shortest accepted custom team name, in runes.
const MinTeamNameLength = 2

var defaultTeamNameRe = regexp.MustCompile(`^Team №\d+$`)

// DefaultTeamName is the system-assigned name for team number n.
func DefaultTeamName(n int) string {
	return fmt.Sprintf("%s%d", defaultTeamPrefix, n)
}

// IsDefaultTeamName reports whether name still has the system-assigned form.
func IsDefaultTeamName(name string) bool {
	return defaultTeamNameRe.MatchString(strings.TrimSpace(name))
}

// CleanTeamName trims name and checks the length rule.
func CleanTeamName(name string) (string, bool) {
	name = strings.TrimSpace(name)
	return name, utf8.RuneCountInString(name) >= MinTeamNameLength
}

// NextDefaultTeamNumber returns the smallest n >= 1 whose default name is not
// among existing.
func NextDefaultTeamNumber(existing []string) int {
	used := make(map[string]struct{}, len(existing))
	for _, name := range existing {
		used[strings.TrimSpace(name)] = struct{}{}
	}
	for n := 1; ; n++ {
		if _, ok := used[DefaultTeamName(n)]; !ok {
			return n
		}
	}
}
