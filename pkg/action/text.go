package action

import (
	"strings"
	"unicode"

	"github.com/mozillazg/go-pinyin"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// shellMeta are the characters the device shell would interpret.
const shellMeta = "\\'\"`<>|&$;()"

var pinyinArgs = pinyin.NewArgs()

// Romanize converts Han characters to toneless pinyin with no separators
// ("你好" becomes "nihao") and folds accented Latin letters to their base
// letters. Anything still outside ASCII is dropped.
func Romanize(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			for _, syllable := range pinyin.LazyPinyin(string(r), pinyinArgs) {
				sb.WriteString(syllable)
			}
			continue
		}
		sb.WriteRune(r)
	}
	return foldASCII(sb.String())
}

func foldASCII(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII || unicode.IsControl(r) {
			return -1
		}
		return r
	}, folded)
}

// InputChunks splits text into the `input text` arguments that type it.
// The device turns every "%s" into a space and has no escape for it, so a
// literal "%s" is typed as two commands, one ending in "%" and the next
// starting with "s".
func InputChunks(text string) []string {
	text = Romanize(text)

	var chunks []string
	for {
		i := strings.Index(text, "%s")
		if i < 0 {
			break
		}
		chunks = append(chunks, EncodeInputText(text[:i+1]))
		text = text[i+1:]
	}
	if encoded := EncodeInputText(text); encoded != "" {
		chunks = append(chunks, encoded)
	}
	return chunks
}

// EncodeInputText prepares text for `input text`: romanized, spaces as %s,
// shell metacharacters backslash-escaped. A literal "%s" in text would be
// typed as a space; use InputChunks for text that may contain one.
func EncodeInputText(text string) string {
	text = Romanize(text)

	var sb strings.Builder
	for _, r := range text {
		switch {
		case r == ' ':
			sb.WriteString("%s")
		case strings.ContainsRune(shellMeta, r):
			sb.WriteByte('\\')
			sb.WriteRune(r)
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
