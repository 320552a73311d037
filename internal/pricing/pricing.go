// Package pricing parses the free-text prices and bedroom configurations
// entered on listings and matches them against search filters.
package pricing

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	lakh  = 100_000
	crore = 10_000_000
)

var leadingNumber = regexp.MustCompile(`[0-9]+(\.[0-9]+)?`)

// ParsePrice converts text such as "85 Lakhs", "1.2 Cr" or "4,50,000" into
// rupees. Anything without a number yields 0.
func ParsePrice(s string) float64 {
	text := strings.ReplaceAll(strings.ToLower(s), ",", "")
	m := leadingNumber.FindString(text)
	if m == "" {
		return 0
	}
	n, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}

	switch {
	case strings.Contains(text, "crore") || strings.Contains(text, "cr"):
		return n * crore
	case strings.Contains(text, "lakh") || strings.Contains(text, "l"):
		return n * lakh
	}
	return n
}

// ParsePricePtr is ParsePrice for optional columns; nil is 0.
func ParsePricePtr(s *string) float64 {
	if s == nil {
		return 0
	}
	return ParsePrice(*s)
}

// InRange reports whether the parsed price lies within [min, max]. A max of
// zero or less leaves the range open above.
func InRange(price string, min, max float64) bool {
	v := ParsePrice(price)
	if v < min {
		return false
	}
	if max > 0 && v > max {
		return false
	}
	return true
}

// MatchesBHK reports whether the configuration or description mentions any of
// the wanted bedroom counts as "{n}bhk" or "{n} bhk". An empty wanted list
// matches everything. Values such as "4+" are matched literally.
func MatchesBHK(configuration, description string, wanted []string) bool {
	if len(wanted) == 0 {
		return true
	}
	text := strings.ToLower(configuration + " " + description)
	for _, w := range wanted {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		if strings.Contains(text, w+"bhk") || strings.Contains(text, w+" bhk") {
			return true
		}
	}
	return false
}

// Unit is the denomination a price was entered in.
type Unit string

const (
	Rupee    Unit = "rupee"
	Thousand Unit = "thousand"
	Lakh     Unit = "lakh"
	Crore    Unit = "crore"
)

func (u Unit) multiplier() int64 {
	switch u {
	case Thousand:
		return 1_000
	case Lakh:
		return lakh
	case Crore:
		return crore
	}
	return 1
}

// ParseUnit accepts the canonical names plus the usual short forms.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "rupee", "rupees", "inr", "rs":
		return Rupee, nil
	case "thousand", "k":
		return Thousand, nil
	case "lakh", "lakhs", "lac", "lacs", "l":
		return Lakh, nil
	case "crore", "crores", "cr":
		return Crore, nil
	}
	return "", fmt.Errorf("unknown price unit %q", s)
}

// Price is a structured amount in whole rupees together with the unit it is
// displayed in.
type Price struct {
	Amount int64 `json:"amount"`
	Unit   Unit  `json:"unit"`
}

// NewPrice builds a Price from a figure in the given unit, e.g. (1.2, Crore).
func NewPrice(value float64, unit Unit) Price {
	if unit == "" {
		unit = Rupee
	}
	return Price{Amount: int64(value*float64(unit.multiplier()) + 0.5), Unit: unit}
}

// Rupees returns the amount in rupees.
func (p Price) Rupees() int64 { return p.Amount }

// IsZero reports whether no price is set.
func (p Price) IsZero() bool { return p.Amount == 0 }

// String renders the price in its unit, e.g. "85 Lakhs" or "1.2 Cr".
func (p Price) String() string {
	if p.Amount == 0 {
		return ""
	}
	v := float64(p.Amount) / float64(p.Unit.multiplier())
	num := strconv.FormatFloat(v, 'f', -1, 64)
	switch p.Unit {
	case Crore:
		return num + " Cr"
	case Lakh:
		if v == 1 {
			return num + " Lakh"
		}
		return num + " Lakhs"
	case Thousand:
		return num + "K"
	}
	return "₹" + strconv.FormatInt(p.Amount, 10)
}

// PriceFromText converts a legacy free-text price into a structured Price,
// picking the unit the text was written in.
func PriceFromText(s string) Price {
	amount := ParsePrice(s)
	if amount == 0 {
		return Price{Unit: Rupee}
	}
	text := strings.ToLower(s)
	unit := Rupee
	switch {
	case strings.Contains(text, "crore") || strings.Contains(text, "cr"):
		unit = Crore
	case strings.Contains(text, "lakh") || strings.Contains(text, "l"):
		unit = Lakh
	}
	return Price{Amount: int64(amount + 0.5), Unit: unit}
}

// InRange reports whether p lies within [min, max] rupees; max <= 0 is open.
func (p Price) InRange(min, max int64) bool {
	if p.Amount < min {
		return false
	}
	return max <= 0 || p.Amount <= max
}
