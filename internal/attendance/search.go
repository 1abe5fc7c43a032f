package attendance

import (
	"strings"
	"unicode"

	"github.com/kozaktomas/face-attendance/internal/database"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldText lowercases s and strips diacritical marks ("Đức" -> "duc").
func foldText(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	// Đ/đ has no decomposition.
	result = strings.NewReplacer("Đ", "D", "đ", "d").Replace(result)
	return strings.ToLower(strings.TrimSpace(result))
}

// FilterEmployees returns the employees whose name, code or department contains
// every word of the query, ignoring case and diacritics. An empty query matches all.
func FilterEmployees(employees []database.EmployeeSummary, query string) []database.EmployeeSummary {
	words := strings.Fields(foldText(query))
	if len(words) == 0 {
		return employees
	}

	matched := []database.EmployeeSummary{}
	for _, emp := range employees {
		haystack := foldText(emp.FullName) + " " + foldText(emp.Code)
		if emp.Department != nil {
			haystack += " " + foldText(*emp.Department)
		}
		if containsAll(haystack, words) {
			matched = append(matched, emp)
		}
	}
	return matched
}

func containsAll(haystack string, words []string) bool {
	for _, w := range words {
		if !strings.Contains(haystack, w) {
			return false
		}
	}
	return true
}
