package label

import "testing"

func TestParseNormalization(t *testing.T) {
	cases := []struct {
		in   string
		want Label
	}{
		{"//foo/bar:baz", "//foo/bar:baz"},
		{"//foo/bar", "//foo/bar:bar"},
		{"//foo", "//foo:foo"},
		{"@pods//Alamofire", "@pods//Alamofire:Alamofire"},
		{"@pods//Alamofire:Core", "@pods//Alamofire:Core"},
	}

	for _, c := range cases {
		got, err := Parse(c.in)
		if err != nil {
			t.Errorf("Parse(%q) failed: %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("Parse(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestParseRejectsMalformedLabels(t *testing.T) {
	for _, in := range []string{"", "foo/bar", "@pods", "//:"} {
		if l, err := Parse(in); err == nil {
			t.Errorf("Parse(%q) = %q, want error", in, l)
		}
	}
}

func TestAccessors(t *testing.T) {
	l := MustParse("//Library/Sources:MyLibrary")
	if got := l.PackageName(); got != "Library/Sources" {
		t.Errorf("PackageName = %q, want Library/Sources", got)
	}
	if got := l.TargetName(); got != "MyLibrary" {
		t.Errorf("TargetName = %q, want MyLibrary", got)
	}
	if got := l.AsFullPBXTargetName(); got != "Library-Sources-MyLibrary" {
		t.Errorf("AsFullPBXTargetName = %q, want Library-Sources-MyLibrary", got)
	}
}
