package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromFilePath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"notes/Hello World.md", "notes/Hello-World"},
		{`notes\sub\Page.md`, "notes/sub/Page"},
		{"a/b/c", "a/b/c"},
		{"What's new? (2024).md", "Whats-new-2024"},
		{"Über  café.md", "Über-café"},
		{"日本語 ノート.md", "日本語-ノート"},
		{"folder/", "folder"},
		{"folder//", "folder"},
		{"tabs\tand nbsp.md", "tabs-and-nbsp"},
		{"keep_under-score.md", "keep_under-score"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, FromFilePath(tt.in))
		})
	}
}

func TestFromFilePathIdempotent(t *testing.T) {
	inputs := []string{
		"notes/Hello World.md",
		"a.md.md",
		`x\y z\.md`,
		"trailing/slash/",
		"/leading/slash",
		"weird #chars & stuff%.md",
		"  spaced  /  out  ",
		"mixed/Ünïcödé ß/ΣΊΣΥΦΟΣ.md",
	}
	for _, in := range inputs {
		once := FromFilePath(in)
		assert.Equal(t, once, FromFilePath(once), "input %q", in)
	}
}

func TestFromAlias(t *testing.T) {
	assert.Equal(t, "My-Alias", FromAlias("My Alias"))
	assert.Equal(t, "already", FromAlias("already.md"))
	assert.Equal(t, "dir/Other-Name", FromAlias("dir/Other Name"))
}

func TestTags(t *testing.T) {
	assert.Equal(t, []string{"foo", "bar/baz"}, Tags([]string{"Foo", "foo", "Bar/Baz"}))
	assert.Equal(t, []string{"multi-word", "x"}, Tags([]string{"Multi Word", "", "  ", "x", "!!"}))
	assert.Equal(t, "c-sharp", Tag(" C Sharp "))
	assert.Equal(t, "ärger", Tag("Ärger"))
}

func TestAnchor(t *testing.T) {
	assert.Equal(t, "some-heading", Anchor("Some Heading"))
	assert.Equal(t, "ab", Anchor("a/b"))
}

func TestPathToRoot(t *testing.T) {
	assert.Equal(t, ".", PathToRoot("index"))
	assert.Equal(t, ".", PathToRoot("page"))
	assert.Equal(t, "..", PathToRoot("notes/page"))
	assert.Equal(t, "../..", PathToRoot("a/b/page"))
}

func TestRelative(t *testing.T) {
	assert.Equal(t, "./tags/foo", Relative("page", "tags/foo"))
	assert.Equal(t, "../tags/foo", Relative("notes/page", "tags/foo"))
	assert.Equal(t, "../notes/other", Relative("notes/page", "notes/other"))
	assert.Equal(t, "./folder/", Relative("page", "folder/index"))
	assert.Equal(t, "./", Relative("page", "index"))
}

func TestResolveLink(t *testing.T) {
	tests := []struct {
		current, target string
		slug, frag      string
	}{
		{"notes/a", "./b.md", "notes/b", ""},
		{"notes/a", "../top.md", "top", ""},
		{"notes/a", "/root/Page One.md#Intro", "root/Page-One", "Intro"},
		{"notes/a", "#section", "notes/a", "section"},
		{"a", "sub/c", "sub/c", ""},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			s, f := ResolveLink(tt.current, tt.target)
			assert.Equal(t, tt.slug, s)
			assert.Equal(t, tt.frag, f)
		})
	}
}
