// Package kana converts between hiragana, katakana and romaji and
// classifies runes by Japanese script.
package kana

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// IterationMark is accepted alongside kanji and kana in Japanese text.
const IterationMark = '々'

// katakana and hiragana blocks are 0x60 apart for the convertible range.
const kanaOffset = 0x60

// IsPunct reports whether r is CJK punctuation.
func IsPunct(r rune) bool { return r >= 0x3000 && r <= 0x303f }

// IsHiragana reports whether r is in the hiragana block.
func IsHiragana(r rune) bool { return r >= 0x3040 && r <= 0x309f }

// IsKatakana reports whether r is in the katakana block.
func IsKatakana(r rune) bool { return r >= 0x30a0 && r <= 0x30ff }

// IsKana reports whether r is hiragana or katakana.
func IsKana(r rune) bool { return IsHiragana(r) || IsKatakana(r) }

// IsKanji reports whether r is a CJK unified ideograph.
func IsKanji(r rune) bool { return r >= 0x4e00 && r <= 0x9faf }

// IsCompat reports whether r is a CJK compatibility ideograph.
func IsCompat(r rune) bool { return r >= 0xf900 && r <= 0xfaff }

// IsExtension reports whether r is in one of the CJK extension blocks.
func IsExtension(r rune) bool {
	return (r >= 0x3400 && r <= 0x4dbf) || (r >= 0x20000 && r <= 0x2ebef)
}

// IsIdeograph reports whether r is any kind of CJK ideograph.
func IsIdeograph(r rune) bool { return IsKanji(r) || IsCompat(r) || IsExtension(r) }

// IsJapanese reports whether r is kanji, kana or the iteration mark.
func IsJapanese(r rune) bool { return IsKanji(r) || IsKana(r) || r == IterationMark }

// AllJapanese reports whether s is non-empty and consists solely of
// Japanese script runes. Such text cannot occur in a non-Japanese gloss.
func AllJapanese(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !IsJapanese(r) && !IsIdeograph(r) {
			return false
		}
	}
	return true
}

// Ideographs returns the ideographs of s in order of first appearance.
func Ideographs(s string) []rune {
	var out []rune
	seen := make(map[rune]bool)
	for _, r := range s {
		if IsIdeograph(r) && !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	return out
}

// Fold maps full-width ASCII to ASCII and half-width katakana to
// full-width, composing any voicing marks that result.
func Fold(s string) string {
	out, _, err := transform.String(transform.Chain(width.Fold, norm.NFC), s)
	if err != nil {
		return s
	}
	return out
}

// ToHiragana converts katakana and romaji in s to hiragana. Other runes
// are left alone.
func ToHiragana(s string) string {
	return katakanaToHiragana(RomajiToHiragana(Fold(s)))
}

// ToKatakana converts hiragana and romaji in s to katakana.
func ToKatakana(s string) string {
	return RomajiToKatakana(Fold(s))
}

func katakanaToHiragana(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 0x30a1 && r <= 0x30f6 {
			return r - kanaOffset
		}
		return r
	}, s)
}

func hiraganaToKatakana(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 0x3041 && r <= 0x3096 {
			return r + kanaOffset
		}
		return r
	}, s)
}

// RomajiToKatakana converts romaji and hiragana in s to katakana.
func RomajiToKatakana(s string) string {
	return hiraganaToKatakana(RomajiToHiragana(s))
}

// RomajiToHiragana converts runs of latin letters to hiragana, using
// Hepburn and Kunrei spellings. Letters that do not form a syllable are
// kept as they are.
func RomajiToHiragana(s string) string {
	var b strings.Builder
	lower := asciiLower(s)
	for i := 0; i < len(lower); {
		c := lower[i]
		if !isLetter(c) {
			if c == '-' && i > 0 && isLetter(lower[i-1]) {
				b.WriteRune('ー')
				i++
				continue
			}
			r, size := utf8.DecodeRuneInString(s[i:])
			b.WriteRune(r)
			i += size
			continue
		}
		// ん
		if c == 'n' {
			next := byteAt(lower, i+1)
			switch {
			case next == '\'':
				b.WriteRune('ん')
				i += 2
				continue
			case next == 'n':
				b.WriteRune('ん')
				if isVowel(byteAt(lower, i+2)) || byteAt(lower, i+2) == 'y' {
					i++
				} else {
					i += 2
				}
				continue
			case !isVowel(next) && next != 'y':
				b.WriteRune('ん')
				i++
				continue
			}
		}
		// doubled consonant becomes a small tsu
		if next := byteAt(lower, i+1); next == c && !isVowel(c) {
			b.WriteRune('っ')
			i++
			continue
		}
		if c == 't' && byteAt(lower, i+1) == 'c' && byteAt(lower, i+2) == 'h' {
			b.WriteRune('っ')
			i++
			continue
		}
		matched := false
		for n := 4; n > 0; n-- {
			if i+n > len(lower) {
				continue
			}
			if kana, ok := romajiKana[lower[i:i+n]]; ok {
				b.WriteString(kana)
				i += n
				matched = true
				break
			}
		}
		if !matched {
			b.WriteByte(s[i])
			i++
		}
	}
	return b.String()
}

func asciiLower(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' {
			return r + 'a' - 'A'
		}
		return r
	}, s)
}

func isLetter(c byte) bool { return c >= 'a' && c <= 'z' }

func isVowel(c byte) bool {
	return c == 'a' || c == 'i' || c == 'u' || c == 'e' || c == 'o'
}

func byteAt(s string, i int) byte {
	if i < len(s) {
		return s[i]
	}
	return 0
}

var romajiKana = map[string]string{
	"a": "あ", "i": "い", "u": "う", "e": "え", "o": "お",
	"ka": "か", "ki": "き", "ku": "く", "ke": "け", "ko": "こ",
	"ga": "が", "gi": "ぎ", "gu": "ぐ", "ge": "げ", "go": "ご",
	"sa": "さ", "si": "し", "shi": "し", "su": "す", "se": "せ", "so": "そ",
	"za": "ざ", "zi": "じ", "ji": "じ", "zu": "ず", "ze": "ぜ", "zo": "ぞ",
	"ta": "た", "ti": "ち", "chi": "ち", "tu": "つ", "tsu": "つ", "te": "て", "to": "と",
	"da": "だ", "di": "ぢ", "du": "づ", "de": "で", "do": "ど",
	"na": "な", "ni": "に", "nu": "ぬ", "ne": "ね", "no": "の",
	"ha": "は", "hi": "ひ", "hu": "ふ", "fu": "ふ", "he": "へ", "ho": "ほ",
	"ba": "ば", "bi": "び", "bu": "ぶ", "be": "べ", "bo": "ぼ",
	"pa": "ぱ", "pi": "ぴ", "pu": "ぷ", "pe": "ぺ", "po": "ぽ",
	"ma": "ま", "mi": "み", "mu": "む", "me": "め", "mo": "も",
	"ya": "や", "yu": "ゆ", "yo": "よ",
	"ra": "ら", "ri": "り", "ru": "る", "re": "れ", "ro": "ろ",
	"wa": "わ", "wi": "ゐ", "we": "ゑ", "wo": "を",
	"n": "ん",
	"va": "ゔぁ", "vi": "ゔぃ", "vu": "ゔ", "ve": "ゔぇ", "vo": "ゔぉ",
	"fa": "ふぁ", "fi": "ふぃ", "fe": "ふぇ", "fo": "ふぉ",
	"kya": "きゃ", "kyu": "きゅ", "kyo": "きょ",
	"gya": "ぎゃ", "gyu": "ぎゅ", "gyo": "ぎょ",
	"sya": "しゃ", "syu": "しゅ", "syo": "しょ", "sha": "しゃ", "shu": "しゅ", "sho": "しょ",
	"zya": "じゃ", "zyu": "じゅ", "zyo": "じょ", "ja": "じゃ", "ju": "じゅ", "jo": "じょ",
	"jya": "じゃ", "jyu": "じゅ", "jyo": "じょ",
	"tya": "ちゃ", "tyu": "ちゅ", "tyo": "ちょ", "cha": "ちゃ", "chu": "ちゅ", "cho": "ちょ",
	"dya": "ぢゃ", "dyu": "ぢゅ", "dyo": "ぢょ",
	"nya": "にゃ", "nyu": "にゅ", "nyo": "にょ",
	"hya": "ひゃ", "hyu": "ひゅ", "hyo": "ひょ",
	"bya": "びゃ", "byu": "びゅ", "byo": "びょ",
	"pya": "ぴゃ", "pyu": "ぴゅ", "pyo": "ぴょ",
	"mya": "みゃ", "myu": "みゅ", "myo": "みょ",
	"rya": "りゃ", "ryu": "りゅ", "ryo": "りょ",
	"xa": "ぁ", "xi": "ぃ", "xu": "ぅ", "xe": "ぇ", "xo": "ぉ",
	"la": "ぁ", "li": "ぃ", "lu": "ぅ", "le": "ぇ", "lo": "ぉ",
	"xya": "ゃ", "xyu": "ゅ", "xyo": "ょ",
	"lya": "ゃ", "lyu": "ゅ", "lyo": "ょ",
	"xtu": "っ", "xtsu": "っ", "ltu": "っ", "ltsu": "っ",
	"xwa": "ゎ", "lwa": "ゎ",
}
