package xcodeproj

import (
	"bytes"
	"fmt"
	"strings"
)

// The serializer renders the object graph into an intermediate ordered
// plist representation before writing OpenStep text. Values are string,
// gidRef, []plistValue, or *plistDict.

// gidRef is a back-reference to another object by identifier, emitted as
// `GID /* comment */`.
type gidRef struct {
	gid     string
	comment string
}

type plistDict struct {
	keys   []string
	values map[string]any
}

func newPlistDict() *plistDict {
	return &plistDict{values: make(map[string]any)}
}

func (d *plistDict) set(key string, value any) {
	if _, ok := d.values[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.values[key] = value
}

// unquotedChars is the OpenStep token charset: anything else forces
// quoting.
func isUnquotedToken(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_' || r == '$' || r == '/' || r == ':' || r == '.' || r == '-':
		default:
			return false
		}
	}
	return true
}

func quoteString(s string) string {
	if isUnquotedToken(s) {
		return s
	}
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// writePlistValue renders one value at the given indentation depth.
func writePlistValue(buf *bytes.Buffer, value any, indent int) error {
	tabs := strings.Repeat("\t", indent)
	switch v := value.(type) {
	case string:
		buf.WriteString(quoteString(v))
	case gidRef:
		buf.WriteString(v.gid)
		if v.comment != "" {
			fmt.Fprintf(buf, " /* %s */", v.comment)
		}
	case []any:
		buf.WriteString("(\n")
		for _, item := range v {
			buf.WriteString(tabs + "\t")
			if err := writePlistValue(buf, item, indent+1); err != nil {
				return err
			}
			buf.WriteString(",\n")
		}
		buf.WriteString(tabs + ")")
	case *plistDict:
		buf.WriteString("{\n")
		for _, key := range v.keys {
			buf.WriteString(tabs + "\t" + quoteString(key) + " = ")
			if err := writePlistValue(buf, v.values[key], indent+1); err != nil {
				return err
			}
			buf.WriteString(";\n")
		}
		buf.WriteString(tabs + "}")
	default:
		return fmt.Errorf("unserializable plist value of type %T", value)
	}
	return nil
}
