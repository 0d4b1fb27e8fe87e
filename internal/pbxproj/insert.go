package pbxproj

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const (
	buildFileSection = "PBXBuildFile"
	fileRefSection   = "PBXFileReference"

	// DefaultPhase is the build phase new sources are compiled in.
	DefaultPhase = "Sources"
)

// Options controls where the Registrar inserts new entries.
type Options struct {
	// Group is the name of the PBXGroup that receives new file references.
	Group string
	// AnchorFile picks the group whose children already list this file when
	// several groups share the same name. Empty selects the first one.
	AnchorFile string
	// Target resolves the build phase through this native target's
	// buildPhases list. Empty selects the first phase named Phase.
	Target string
	// Phase is the build phase name, "Sources" by default.
	Phase string
	// Strict turns a missing section or anchor into an error instead of a
	// skipped step.
	Strict bool
}

// Registration describes the entries added for one file.
type Registration struct {
	Filename string
	RefID    string
	BuildID  string
	// Skipped names the steps that found no place to insert into.
	Skipped []string
}

// Registrar adds source files to a manifest.
type Registrar struct {
	opts Options
	ids  *Generator
}

// NewRegistrar creates a Registrar. Identifiers come from ids, which should
// live for the whole pass so identifiers are never handed out twice.
func NewRegistrar(opts Options, ids *Generator) *Registrar {
	if opts.Phase == "" {
		opts.Phase = DefaultPhase
	}
	if ids == nil {
		ids = NewGenerator()
	}
	return &Registrar{opts: opts, ids: ids}
}

type step struct {
	name  string
	apply func(buf string, reg *Registration) (string, error)
}

// Register adds a build file record, a file reference record, a group child
// and a build phase member for filename. It always inserts; callers check
// Registered first. On error buf is returned unchanged.
func (r *Registrar) Register(buf, filename string) (string, Registration, error) {
	reg := Registration{Filename: filename}
	reg.RefID = r.ids.Fresh(buf)
	reg.BuildID = r.ids.Fresh(buf)

	steps := []step{
		{name: "build file", apply: r.addBuildFile},
		{name: "file reference", apply: r.addFileReference},
		{name: "group", apply: r.addGroupChild},
		{name: "build phase", apply: r.addPhaseMember},
	}

	out := buf
	for _, s := range steps {
		next, err := s.apply(out, &reg)
		if err != nil {
			if errors.Is(err, ErrSectionNotFound) && !r.opts.Strict {
				reg.Skipped = append(reg.Skipped, s.name)
				continue
			}
			return buf, reg, fmt.Errorf("%s: %w", s.name, err)
		}
		out = next
	}

	if len(reg.Skipped) == len(steps) {
		return buf, reg, fmt.Errorf("no insertion point found: %w", ErrSectionNotFound)
	}
	return out, reg, nil
}

func (r *Registrar) buildComment(filename string) string {
	return filename + " in " + r.opts.Phase
}

func (r *Registrar) addBuildFile(buf string, reg *Registration) (string, error) {
	section, err := FindSection(buf, buildFileSection)
	if err != nil {
		return "", err
	}
	record := fmt.Sprintf("%s /* %s */ = {isa = PBXBuildFile; fileRef = %s /* %s */; };",
		reg.BuildID, r.buildComment(reg.Filename), reg.RefID, reg.Filename)
	return appendRecord(buf, section, record), nil
}

func (r *Registrar) addFileReference(buf string, reg *Registration) (string, error) {
	section, err := FindSection(buf, fileRefSection)
	if err != nil {
		return "", err
	}
	record := fmt.Sprintf("%s /* %s */ = {isa = PBXFileReference; lastKnownFileType = %s; path = %s; sourceTree = \"<group>\"; };",
		reg.RefID, reg.Filename, FileType(reg.Filename), quote(reg.Filename))
	return appendRecord(buf, section, record), nil
}

func (r *Registrar) addGroupChild(buf string, reg *Registration) (string, error) {
	children, err := r.findGroupChildren(buf)
	if err != nil {
		return "", err
	}
	return appendMember(buf, children, fmt.Sprintf("%s /* %s */", reg.RefID, reg.Filename)), nil
}

func (r *Registrar) addPhaseMember(buf string, reg *Registration) (string, error) {
	files, err := r.findPhaseFiles(buf)
	if err != nil {
		return "", err
	}
	return appendMember(buf, files, fmt.Sprintf("%s /* %s */", reg.BuildID, r.buildComment(reg.Filename))), nil
}

// recordListPattern matches the opening of a record named name with the given
// isa, up to and including the '(' of its list field.
func recordListPattern(id, name, isa, field string) *regexp.Regexp {
	return regexp.MustCompile(`(` + id + `)\s*/\* ` + regexp.QuoteMeta(name) + ` \*/ = \{[^}]*?isa = ` +
		isa + `;[^}]*?` + field + ` = \(`)
}

const anyID = `[0-9A-F]{24}`

// findGroupChildren returns the children list of the configured group. When
// several groups share the name, the one listing the anchor file wins.
func (r *Registrar) findGroupChildren(buf string) (Span, error) {
	name := "group " + r.opts.Group
	if r.opts.Group == "" {
		return Span{}, &SectionError{Name: name, Err: ErrSectionNotFound}
	}

	re := recordListPattern(anyID, r.opts.Group, "PBXGroup", "children")
	for _, m := range re.FindAllStringIndex(buf, -1) {
		children, err := ArrayAt(buf, m[1]-1, name)
		if err != nil {
			return Span{}, err
		}
		if r.opts.AnchorFile == "" || children.Contains(buf, r.opts.AnchorFile) {
			return children, nil
		}
	}
	return Span{}, &SectionError{Name: name, Err: ErrSectionNotFound}
}

// findPhaseFiles returns the files list of the configured build phase.
func (r *Registrar) findPhaseFiles(buf string) (Span, error) {
	name := "build phase " + r.opts.Phase
	id := anyID

	if r.opts.Target != "" {
		phaseID, err := r.targetPhaseID(buf)
		if err != nil {
			return Span{}, err
		}
		id = regexp.QuoteMeta(phaseID)
	}

	re := recordListPattern(id, r.opts.Phase, `PBX[A-Za-z]*BuildPhase`, "files")
	m := re.FindStringIndex(buf)
	if m == nil {
		return Span{}, &SectionError{Name: name, Err: ErrSectionNotFound}
	}
	return ArrayAt(buf, m[1]-1, name)
}

// targetPhaseID looks up the identifier of the configured phase in the
// target's buildPhases list.
func (r *Registrar) targetPhaseID(buf string) (string, error) {
	name := "target " + r.opts.Target
	re := recordListPattern(anyID, r.opts.Target, "PBXNativeTarget", "buildPhases")
	m := re.FindStringIndex(buf)
	if m == nil {
		return "", &SectionError{Name: name, Err: ErrSectionNotFound}
	}

	phases, err := ArrayAt(buf, m[1]-1, name)
	if err != nil {
		return "", err
	}

	member := regexp.MustCompile(`(` + anyID + `)\s*/\* ` + regexp.QuoteMeta(r.opts.Phase) + ` \*/`)
	pm := member.FindStringSubmatch(phases.Text(buf))
	if pm == nil {
		return "", &SectionError{Name: name + " phase " + r.opts.Phase, Err: ErrSectionNotFound}
	}
	return strings.TrimSpace(pm[1]), nil
}
