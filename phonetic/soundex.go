package phonetic

import "strings"

// Soundex digit classes for consonants. Vowels, H, W, and Y map to 0 and
// are skipped after the first letter.
var soundexCodes = map[rune]byte{
	'B': '1', 'F': '1', 'P': '1', 'V': '1',
	'C': '2', 'G': '2', 'J': '2', 'K': '2', 'Q': '2', 'S': '2', 'X': '2', 'Z': '2',
	'D': '3', 'T': '3',
	'L': '4',
	'M': '5', 'N': '5',
	'R': '6',
}

// Code returns the 4-character American Soundex code for a word, e.g.
// Code("Robert") == Code("Rupert") == "R163". Returns "" when the word
// contains no Latin letters, so non-Latin vendors simply skip the
// phonetic channel.
func Code(word string) string {
	letters := make([]rune, 0, len(word))
	for _, r := range strings.ToUpper(word) {
		if r >= 'A' && r <= 'Z' {
			letters = append(letters, r)
		}
	}
	if len(letters) == 0 {
		return ""
	}

	code := make([]byte, 1, 4)
	code[0] = byte(letters[0])
	prev := soundexCodes[letters[0]]

	for _, r := range letters[1:] {
		digit, ok := soundexCodes[r]
		if !ok {
			// H and W are transparent: they do not reset the previous
			// digit, so consonants of the same class around them still
			// collapse. Vowels do reset it.
			if r != 'H' && r != 'W' {
				prev = 0
			}
			continue
		}
		if digit != prev {
			code = append(code, digit)
			if len(code) == 4 {
				break
			}
		}
		prev = digit
	}

	for len(code) < 4 {
		code = append(code, '0')
	}
	return string(code)
}

// Match returns the phonetic similarity of two words:
// 0.8 when the Soundex codes are equal, 0.4 when at least half of the
// 4 code positions agree, and 0 otherwise.
func Match(a, b string) float64 {
	codeA, codeB := Code(a), Code(b)
	if codeA == "" || codeB == "" {
		return 0
	}
	if codeA == codeB {
		return 0.8
	}

	agree := 0
	for i := 0; i < 4; i++ {
		if codeA[i] == codeB[i] {
			agree++
		}
	}
	if agree >= 2 {
		return 0.4
	}
	return 0
}

// BestTokenMatch returns the best Match score over all token pairs of the
// two phrases. Used for multi-word vendor names.
func BestTokenMatch(a, b string) float64 {
	tokensA := strings.Fields(a)
	tokensB := strings.Fields(b)

	var best float64
	for _, ta := range tokensA {
		for _, tb := range tokensB {
			if score := Match(ta, tb); score > best {
				best = score
			}
		}
	}
	return best
}
