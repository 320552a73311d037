package pricing

import (
	"fmt"
	"testing"
)

func TestParseBedroomFilter(t *testing.T) {
	tests := []struct {
		in      string
		want    BedroomFilter
		wantErr bool
	}{
		{"2", BedroomFilter{Count: 2}, false},
		{"3 BHK", BedroomFilter{Count: 3}, false},
		{"4+", BedroomFilter{Count: 4, AtLeast: true}, false},
		{"", BedroomFilter{}, true},
		{"many", BedroomFilter{}, true},
		{"0", BedroomFilter{}, true},
	}
	for _, tt := range tests {
		got, err := ParseBedroomFilter(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseBedroomFilter(%q) err = %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseBedroomFilter(%q) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}

func TestBedroomFilterMatches(t *testing.T) {
	fourPlus := BedroomFilter{Count: 4, AtLeast: true}
	if !fourPlus.Matches(5) || !fourPlus.Matches(4) || fourPlus.Matches(3) {
		t.Fatalf("4+ should match 4 and above only")
	}
	two := BedroomFilter{Count: 2}
	if !two.Matches(2) || two.Matches(3) {
		t.Fatalf("exact filter mismatch")
	}
	if !MatchesAny(nil, 7) {
		t.Fatalf("no filters should match everything")
	}
	if !MatchesAny([]BedroomFilter{two, fourPlus}, 6) {
		t.Fatalf("expected 6 to match 4+")
	}
}

func TestBedroomsFromText(t *testing.T) {
	for in, want := range map[string]int{"2, 3 BHK": 2, "3 BHK, 2 BHK": 2, "3BHK villa": 3, "Plot": 0} {
		if got := BedroomsFromText(in); got != want {
			t.Errorf("BedroomsFromText(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestBedroomCounts(t *testing.T) {
	tests := []struct {
		in   string
		want []int
	}{
		{"2, 3 BHK", []int{2, 3}},
		{"2/3/4 BHK", []int{2, 3, 4}},
		{"2 and 3 BHK apartments", []int{2, 3}},
		{"2 BHK, 3 BHK & 3 BHK duplex", []int{2, 3}},
		{"3BHK villa", []int{3}},
		{"Plot", nil},
	}
	for _, tt := range tests {
		if got := BedroomCounts(tt.in); fmt.Sprint(got) != fmt.Sprint(tt.want) {
			t.Errorf("BedroomCounts(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
