package pbxproj

import (
	"path"
	"regexp"
	"strings"
)

// bareChars are the characters the manifest format allows in unquoted strings.
const bareChars = `[A-Za-z0-9_$+./:-]`

// quotedChars matches one character of a quoted string, escapes included.
const quotedChars = `(?:[^"\\]|\\.)`

var bareString = regexp.MustCompile(`^` + bareChars + `+$`)

// Registered returns the base names of all files with one of the given
// extensions that the manifest already references. A file counts as
// registered when it appears as a quoted or unquoted path or name.
func Registered(buf string, exts []string) map[string]struct{} {
	found := make(map[string]struct{})
	if len(exts) == 0 {
		return found
	}

	for _, re := range registrationPatterns(exts) {
		for _, m := range re.FindAllStringSubmatch(buf, -1) {
			found[path.Base(unescape(m[1]))] = struct{}{}
		}
	}
	return found
}

func registrationPatterns(exts []string) []*regexp.Regexp {
	alts := make([]string, 0, len(exts))
	for _, ext := range exts {
		alts = append(alts, regexp.QuoteMeta(normalizeExt(ext)))
	}
	suffix := `(?:` + strings.Join(alts, "|") + `)`

	return []*regexp.Regexp{
		regexp.MustCompile(`path\s*=\s*(` + bareChars + `+` + suffix + `)\s*;`),
		regexp.MustCompile(`path\s*=\s*"(` + quotedChars + `+` + suffix + `)"\s*;`),
		regexp.MustCompile(`name\s*=\s*"(` + quotedChars + `+` + suffix + `)"\s*;`),
		regexp.MustCompile(`name\s*=\s*(` + bareChars + `+` + suffix + `)\s*;`),
	}
}

func normalizeExt(ext string) string {
	if strings.HasPrefix(ext, ".") {
		return ext
	}
	return "." + ext
}

var escaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// quote renders s as a manifest string, quoting only when needed.
func quote(s string) string {
	if bareString.MatchString(s) {
		return s
	}
	return `"` + escaper.Replace(s) + `"`
}

// unescape reverses the escaping of a quoted string's content. A backslash
// makes the next character literal.
func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

var fileTypes = map[string]string{
	".swift": "sourcecode.swift",
	".m":     "sourcecode.c.objc",
	".mm":    "sourcecode.cpp.objcpp",
	".c":     "sourcecode.c.c",
	".cpp":   "sourcecode.cpp.cpp",
	".cc":    "sourcecode.cpp.cpp",
	".h":     "sourcecode.c.h",
	".metal": "sourcecode.metal",
}

// FileType returns the lastKnownFileType for a file name.
func FileType(name string) string {
	if t, ok := fileTypes[strings.ToLower(path.Ext(name))]; ok {
		return t
	}
	return "text"
}
