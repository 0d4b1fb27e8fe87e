package pbxproj

import (
	"crypto/md5"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// IDLength is the width of a manifest object identifier.
const IDLength = 24

// Generator produces 24-character uppercase hexadecimal object identifiers.
// A Generator belongs to a single sync pass and is not safe for concurrent use.
type Generator struct {
	issued  map[string]struct{}
	entropy func() uuid.UUID
}

// NewGenerator creates a generator backed by random UUIDs.
func NewGenerator() *Generator {
	return &Generator{
		issued:  make(map[string]struct{}),
		entropy: uuid.New,
	}
}

// Generate returns a new identifier without checking it against anything.
func (g *Generator) Generate() string {
	u := g.entropy()
	sum := md5.Sum(u[:])
	return strings.ToUpper(hex.EncodeToString(sum[:]))[:IDLength]
}

// Fresh returns an identifier that occurs neither in buf nor among the
// identifiers this generator has already handed out.
func (g *Generator) Fresh(buf string) string {
	for {
		id := g.Generate()
		if _, dup := g.issued[id]; dup {
			continue
		}
		if strings.Contains(buf, id) {
			continue
		}
		g.issued[id] = struct{}{}
		return id
	}
}
