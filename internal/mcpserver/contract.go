package mcpserver

import (
	"fmt"
	"strings"

	"github.com/starford/noteprops/internal/normalize"
)

// SchemaURI addresses the frontmatter schema resource.
const SchemaURI = "noteprops://frontmatter-schema"

// FrontmatterSchema describes how frontmatter fields are normalised, so
// that LLM consumers can write documents the pipeline reads the way they
// expect. The alias table is generated from normalize.Groups.
func FrontmatterSchema() string {
	var b strings.Builder
	b.WriteString("# Frontmatter Schema\n\n")
	b.WriteString("Documents start with a YAML block fenced by `---` or a TOML block fenced by `+++`.\n")
	b.WriteString("Field order is preserved. Unknown fields pass through unchanged.\n\n")

	b.WriteString("## Alias groups\n\n")
	b.WriteString("The first key holding a non-null value supplies the canonical field; the other keys are removed.\n\n")
	b.WriteString("| Canonical | Accepted keys | Coercion | Fallback |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, g := range normalize.Groups {
		keys := make([]string, len(g.Keys))
		for i, k := range g.Keys {
			keys[i] = "`" + k + "`"
		}
		fallback := g.Fallback
		if fallback == "" {
			fallback = "-"
		}
		fmt.Fprintf(&b, "| `%s` | %s | %s | %s |\n", g.Canonical, strings.Join(keys, ", "), g.Coerce, fallback)
	}

	b.WriteString("\n## Rules\n\n")
	fmt.Fprintf(&b, "1. `%s` defaults to the file name stem, or %q when there is none.\n", normalize.TitleKey, normalize.Untitled)
	fmt.Fprintf(&b, "2. `%s` accepts a list or a comma separated string. Each tag is slugified; empty tags are dropped.\n", normalize.TagsKey)
	fmt.Fprintf(&b, "3. `%s` entries become additional path identifiers for the document.\n", normalize.AliasesKey)
	fmt.Fprintf(&b, "4. `%s` is added to the document's path identifiers verbatim.\n", normalize.PermalinkKey)
	b.WriteString("5. `[[wikilinks]]` and `[text](target)` inside any string value are collected as frontmatter links.\n")
	b.WriteString("6. `showProperties: false` hides the properties panel; `collapseProperties: true` renders it closed.\n")
	return b.String()
}
