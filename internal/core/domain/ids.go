package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"path"
	"strings"
	"unicode"

	"github.com/oklog/ulid/v2"
)

// GenerateID creates a unique, time-ordered ID
func GenerateID() string {
	return ulid.Make().String()
}

// genericStems name a directory's index document rather than a topic
var genericStems = map[string]bool{
	"readme": true,
	"index":  true,
	"_index": true,
}

// EntityIDFromPath derives the entity identifier for a source path. It is a
// pure function of the path: the kebab-cased file stem, or the parent
// directory name for README and index files.
func EntityIDFromPath(sourcePath string) string {
	p := path.Clean(strings.ReplaceAll(sourcePath, "\\", "/"))
	base := path.Base(p)
	stem := strings.TrimSuffix(base, path.Ext(base))

	if genericStems[strings.ToLower(stem)] {
		if dir := path.Base(path.Dir(p)); dir != "." && dir != "/" && dir != "" {
			stem = dir
		}
	}
	return Kebab(stem)
}

// Kebab lowercases s and replaces runs of separators with single hyphens
func Kebab(s string) string {
	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	return b.String()
}

// TitleFromContent returns the first H1 heading, or the title-cased
// file stem when the document has none.
func TitleFromContent(content, sourcePath string) string {
	inFence := false
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			continue
		}
		if !inFence && strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}

	base := path.Base(strings.ReplaceAll(sourcePath, "\\", "/"))
	stem := strings.TrimSuffix(base, path.Ext(base))
	words := strings.FieldsFunc(stem, func(r rune) bool { return r == '-' || r == '_' || r == ' ' })
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

// ContentHash fingerprints content for change and dedup detection
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return "sha256:" + hex.EncodeToString(sum[:])[:16]
}
