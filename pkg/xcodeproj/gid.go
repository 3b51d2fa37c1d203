package xcodeproj

import (
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// gidGenerator assigns the 24-hex-digit global identifiers Xcode expects.
// IDs are content-derived (isa + object name + per-name occurrence
// counter hashed with blake2b), so identical input graphs always
// serialize with identical identifiers and regeneration does not churn
// the project file.
type gidGenerator struct {
	counters map[string]int
	assigned map[any]string
}

func newGIDGenerator() *gidGenerator {
	return &gidGenerator{
		counters: make(map[string]int),
		assigned: make(map[any]string),
	}
}

// gidFor returns the identifier for obj, computing it on first request.
func (g *gidGenerator) gidFor(obj any, isa, name string) string {
	if gid, ok := g.assigned[obj]; ok {
		return gid
	}
	key := isa + "\x00" + name
	n := g.counters[key]
	g.counters[key]++

	sum := blake2b.Sum256([]byte(fmt.Sprintf("%s\x00%s\x00%d", isa, name, n)))
	gid := strings.ToUpper(hex.EncodeToString(sum[:12]))
	g.assigned[obj] = gid
	return gid
}
