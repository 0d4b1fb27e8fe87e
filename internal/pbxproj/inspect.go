package pbxproj

import (
	"regexp"
	"strings"
)

// Presence reports which parts of a file's registration exist.
type Presence struct {
	RefID       string
	BuildID     string
	FileRef     bool
	BuildFile   bool
	GroupChild  bool
	PhaseMember bool
}

// Complete reports whether all four parts are present.
func (p Presence) Complete() bool {
	return p.FileRef && p.BuildFile && p.GroupChild && p.PhaseMember
}

// Missing lists the absent parts.
func (p Presence) Missing() []string {
	var missing []string
	if !p.FileRef {
		missing = append(missing, "file reference")
	}
	if !p.BuildFile {
		missing = append(missing, "build file")
	}
	if !p.GroupChild {
		missing = append(missing, "group")
	}
	if !p.PhaseMember {
		missing = append(missing, "build phase")
	}
	return missing
}

// optionalComment matches the whitespace and optional /* comment */ between
// an object identifier and its '='.
const optionalComment = `\s*(?:/\*[^*]*\*/\s*)?`

// fileValuePattern matches a path or name value that ends in filename, in
// quoted or unquoted form. A quoted value must carry filename escaped.
func fileValuePattern(filename string) string {
	quoted := `"(?:` + quotedChars + `*/)?` + regexp.QuoteMeta(escaper.Replace(filename)) + `"`
	if !bareString.MatchString(filename) {
		return quoted
	}
	unquoted := `(?:` + bareChars + `*/)?` + regexp.QuoteMeta(filename)
	return `(?:` + quoted + `|` + unquoted + `)`
}

var buildPhaseSection = regexp.MustCompile(`/\* Begin (PBX[A-Za-z]*BuildPhase) section \*/`)

// Inspect looks up the registration parts of filename. It never modifies the
// manifest; incomplete registrations are reported, not repaired.
func Inspect(buf, filename string) Presence {
	var p Presence

	fileRef := regexp.MustCompile(`(` + anyID + `)` + optionalComment + `= \{[^}]*?isa = PBXFileReference;[^}]*?` +
		`(?:path|name)\s*=\s*` + fileValuePattern(filename) + `\s*;`)
	m := fileRef.FindStringSubmatch(buf)
	if m == nil {
		return p
	}
	p.FileRef = true
	p.RefID = m[1]

	if groups, err := FindSection(buf, "PBXGroup"); err == nil {
		p.GroupChild = groups.Contains(buf, p.RefID)
	}

	buildFile := regexp.MustCompile(`(` + anyID + `)` + optionalComment + `= \{[^}]*?isa = PBXBuildFile;[^}]*?fileRef\s*=\s*` + p.RefID)
	b := buildFile.FindStringSubmatch(buf)
	if b == nil {
		return p
	}
	p.BuildFile = true
	p.BuildID = b[1]

	for _, sm := range buildPhaseSection.FindAllStringSubmatch(buf, -1) {
		phases, err := FindSection(buf, sm[1])
		if err != nil {
			continue
		}
		if strings.Contains(phases.Text(buf), p.BuildID) {
			p.PhaseMember = true
			break
		}
	}
	return p
}
