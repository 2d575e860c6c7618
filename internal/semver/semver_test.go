package semver

import "testing"

func TestOrdering(t *testing.T) {
	ordered := []string{
		"1.0.0-alpha",
		"1.0.0-alpha.2",
		"1.0.0-alpha.10",
		"1.0.0-beta",
		"1.0.0",
		"1.0.1",
		"1.1.0",
		"2.0.0",
	}
	var versions []Version
	for _, s := range ordered {
		v, err := Parse(s)
		if err != nil {
			t.Fatalf("parse %q: %v", s, err)
		}
		versions = append(versions, v)
	}
	for i := 1; i < len(versions); i++ {
		if !versions[i-1].LessThan(versions[i]) {
			t.Fatalf("expected %s < %s", versions[i-1], versions[i])
		}
	}
}

func TestAlphaNumericPrerelease(t *testing.T) {
	a := MustParse("1.0.0-alpha.2")
	b := MustParse("1.0.0-alpha.10")
	if !a.LessThan(b) {
		t.Fatalf("expected numeric prerelease comparison: alpha.2 < alpha.10")
	}
}

func TestPrereleaseBelowRelease(t *testing.T) {
	pre := MustParse("1.0.0-alpha")
	rel := MustParse("1.0.0")
	if !pre.LessThan(rel) {
		t.Fatalf("expected prerelease to sort below release")
	}
}

func TestSortDescending(t *testing.T) {
	versions := []Version{
		MustParse("1.0.0"),
		MustParse("2.0.0"),
		MustParse("1.1.0"),
	}
	SortDescending(versions)
	want := []string{"2.0.0", "1.1.0", "1.0.0"}
	for i, w := range want {
		if versions[i].String() != w {
			t.Fatalf("position %d: got %s want %s", i, versions[i], w)
		}
	}
}

func TestParseInvalid(t *testing.T) {
	if _, err := Parse("1.0"); err == nil {
		t.Fatal("expected error for incomplete version")
	}
	if _, err := Parse("a.b.c"); err == nil {
		t.Fatal("expected error for non-numeric version")
	}
}
