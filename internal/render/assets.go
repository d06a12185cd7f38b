package render

import _ "embed"

// CollapseStorageKey is the sessionStorage key holding the collapsed flag.
const CollapseStorageKey = "note-properties-collapsed"

// Asset file names as emitted next to the build output.
const (
	StylesheetName = "noteProperties.css"
	ScriptName     = "noteProperties.js"
)

var (
	//go:embed static/noteProperties.css
	Stylesheet string

	// Script restores the panel state on every "nav" event and registers
	// its toggle listener for removal through window.addCleanup.
	//go:embed static/noteProperties.inline.js
	Script string
)
