package pricing

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	bhkListPattern = regexp.MustCompile(`(\d+(?:\s*(?:,|/|&|\bor\b|\band\b)\s*\d+)*)\s*bhk`)
	listSep        = regexp.MustCompile(`\s*(?:,|/|&|\bor\b|\band\b)\s*`)
)

// BedroomFilter matches a structured bedroom count. A value with AtLeast set
// ("4+") matches that many bedrooms or more.
type BedroomFilter struct {
	Count   int
	AtLeast bool
}

// ParseBedroomFilter accepts "2", "2bhk", "2 BHK" and "4+".
func ParseBedroomFilter(s string) (BedroomFilter, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.TrimSpace(strings.TrimSuffix(v, "bhk"))
	f := BedroomFilter{}
	if strings.HasSuffix(v, "+") {
		f.AtLeast = true
		v = strings.TrimSuffix(v, "+")
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return BedroomFilter{}, fmt.Errorf("invalid bedroom filter %q", s)
	}
	f.Count = n
	return f, nil
}

// Matches reports whether bedrooms satisfies the filter.
func (f BedroomFilter) Matches(bedrooms int) bool {
	if f.AtLeast {
		return bedrooms >= f.Count
	}
	return bedrooms == f.Count
}

// MatchesAny reports whether bedrooms satisfies any filter; no filters match
// everything.
func MatchesAny(filters []BedroomFilter, bedrooms int) bool {
	if len(filters) == 0 {
		return true
	}
	for _, f := range filters {
		if f.Matches(bedrooms) {
			return true
		}
	}
	return false
}

// BedroomCounts returns every bedroom count a configuration mentions, in
// order and without repeats. A list before the unit counts in full, so
// "2, 3 BHK" and "2/3 BHK" both yield [2 3].
func BedroomCounts(configuration string) []int {
	var out []int
	seen := map[int]bool{}
	for _, m := range bhkListPattern.FindAllStringSubmatch(strings.ToLower(configuration), -1) {
		for _, v := range listSep.Split(m[1], -1) {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil || n <= 0 || seen[n] {
				continue
			}
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

// BedroomsFromText returns the smallest count BedroomCounts finds, or 0.
func BedroomsFromText(configuration string) int {
	min := 0
	for _, n := range BedroomCounts(configuration) {
		if min == 0 || n < min {
			min = n
		}
	}
	return min
}
