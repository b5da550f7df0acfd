package archive

import (
	"sort"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// NaturalSort orders names the way a reader expects page order to read:
// embedded digit runs compare by numeric value rather than byte value, so
// "page2.jpg" sorts before "page10.jpg". Names are first normalized to
// Unicode NFC so archives produced on different platforms (HFS+ commonly
// decomposes accented characters) compare consistently.
//
// No pack example implements natural ordering; this is a small, well
// understood string-comparison algorithm, implemented directly rather than
// importing a library for it (see DESIGN.md).
func NaturalSort(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		return naturalLess(norm.NFC.String(names[i]), norm.NFC.String(names[j]))
	})
}

func naturalLess(a, b string) bool {
	ra, rb := []rune(a), []rune(b)
	i, j := 0, 0

	for i < len(ra) && j < len(rb) {
		ca, cb := ra[i], rb[j]

		if unicode.IsDigit(ca) && unicode.IsDigit(cb) {
			startI, startJ := i, j
			for i < len(ra) && unicode.IsDigit(ra[i]) {
				i++
			}
			for j < len(rb) && unicode.IsDigit(rb[j]) {
				j++
			}

			numA := trimLeadingZeros(ra[startI:i])
			numB := trimLeadingZeros(rb[startJ:j])

			if len(numA) != len(numB) {
				return len(numA) < len(numB)
			}
			for k := range numA {
				if numA[k] != numB[k] {
					return numA[k] < numB[k]
				}
			}
			continue
		}

		if ca != cb {
			return ca < cb
		}
		i++
		j++
	}

	return len(ra)-i < len(rb)-j
}

func trimLeadingZeros(digits []rune) []rune {
	k := 0
	for k < len(digits)-1 && digits[k] == '0' {
		k++
	}
	return digits[k:]
}
