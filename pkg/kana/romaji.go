package kana

import "strings"

// LongVowelStyle selects how the prolonged sound mark is rendered.
type LongVowelStyle int

const (
	// LongVowelRepeat repeats the preceding vowel; a long o is written ou.
	LongVowelRepeat LongVowelStyle = iota
	// LongVowelMacron puts a macron over the preceding vowel.
	LongVowelMacron
)

// grid rows are consonant columns, each holding the a/i/u/e/o cells.
var (
	gridVowels     = "aiueo"
	gridConsonants = []string{"", "x", "v", "k", "g", "s", "z", "t", "d", "xt", "n", "h", "b", "p", "m", "y", "xy", "r", "w", "xw"}
	gridKana       = []string{
		"あいうえお",
		"ぁぃぅぇぉ",
		"〇〇ゔ〇〇",
		"かきくけこ",
		"がぎぐげご",
		"さしすせそ",
		"ざじずぜぞ",
		"たちつてと",
		"だぢづでど",
		"〇〇っ〇〇",
		"なにぬねの",
		"はひふへほ",
		"ばびぶべぼ",
		"ぱぴぷぺぽ",
		"まみむめも",
		"や〇ゆ〇よ",
		"ゃ〇ゅ〇ょ",
		"らりるれろ",
		"わゐ〇ゑを",
		"ゎ〇〇〇〇",
	}
	kanaSyllable = buildSyllables()
)

// Kunrei spellings rewritten to Hepburn after folding.
var hepburn = map[string]string{
	"si": "shi", "zi": "ji", "ti": "chi", "tu": "tsu", "xtu": "xtsu",
	"sya": "sha", "syo": "sho", "syu": "shu",
	"zya": "ja", "zyo": "jo", "zyu": "ju",
	"tya": "cha", "tyo": "cho", "tyu": "chu",
	"hu": "fu",
}

var macrons = map[byte]string{'a': "ā", 'i': "ī", 'u': "ū", 'e': "ē", 'o': "ō"}

func buildSyllables() map[rune]string {
	m := map[rune]string{'ん': "nn"}
	for i, row := range gridKana {
		for j, r := range []rune(row) {
			if r == '〇' {
				continue
			}
			m[r] = gridConsonants[i] + gridVowels[j:j+1]
		}
	}
	return m
}

// ToRomaji transliterates hiragana and katakana in s. Small kana that
// cannot attach to the preceding syllable are written with an x prefix,
// and ん is always written nn.
func ToRomaji(s string, style LongVowelStyle) string {
	var parts []string
	for _, r := range katakanaToHiragana(Fold(s)) {
		syl, ok := kanaSyllable[r]
		if !ok {
			syl = string(r)
		}
		parts = foldSyllable(parts, syl, style)
	}
	var b strings.Builder
	for _, p := range parts {
		if h, ok := hepburn[p]; ok {
			p = h
		}
		b.WriteString(p)
	}
	return b.String()
}

func foldSyllable(parts []string, x string, style LongVowelStyle) []string {
	if len(parts) == 0 {
		return append(parts, x)
	}
	last := len(parts) - 1
	tl := parts[last]
	if !isSyllable(tl) {
		return append(parts, x)
	}
	switch {
	case strings.HasPrefix(x, "xy") && tl != "xtu":
		parts[last] = tl[:len(tl)-1] + x[1:]
	case tl == "xtu" && isSyllable(x) && x[0] != 'x':
		parts[last] = x[:1] + x
	case len(x) == 2 && x[0] == 'x' && tl == "hu":
		parts[last] = "f" + x[1:]
	case len(x) == 2 && x[0] == 'x' && tl == "vu":
		parts[last] = "v" + x[1:]
	case x == "ー":
		if h, ok := hepburn[tl]; ok {
			tl = h
		}
		v := tl[len(tl)-1]
		switch {
		case style == LongVowelMacron && macrons[v] != "":
			parts[last] = tl[:len(tl)-1] + macrons[v]
		case v == 'o':
			parts[last] = tl + "u"
		default:
			parts[last] = tl + string(v)
		}
	default:
		parts = append(parts, x)
	}
	return parts
}

// isSyllable reports whether s is a romanized kana syllable.
func isSyllable(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isLetter(s[i]) {
			return false
		}
	}
	return true
}
