package render

import "golang.org/x/text/language"

// DefaultLocale is used for unknown or unparsable locales.
const DefaultLocale = "en-US"

// panelTitles is indexed in step with supported; the first entry is the
// fallback.
var (
	supported = []language.Tag{
		language.MustParse("en-US"),
		language.MustParse("en-GB"),
		language.MustParse("de-DE"),
		language.MustParse("fr-FR"),
		language.MustParse("es-ES"),
		language.MustParse("it-IT"),
		language.MustParse("pt-BR"),
		language.MustParse("nl-NL"),
		language.MustParse("ja-JP"),
		language.MustParse("zh-CN"),
		language.MustParse("ko-KR"),
		language.MustParse("ru-RU"),
	}
	panelTitles = []string{
		"Properties",
		"Properties",
		"Eigenschaften",
		"Propriétés",
		"Propiedades",
		"Proprietà",
		"Propriedades",
		"Eigenschappen",
		"プロパティ",
		"属性",
		"속성",
		"Свойства",
	}
	matcher = language.NewMatcher(supported)
)

// Title returns the panel heading for locale.
func Title(locale string) string {
	tag, err := language.Parse(locale)
	if err != nil {
		return panelTitles[0]
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No || idx < 0 || idx >= len(panelTitles) {
		return panelTitles[0]
	}
	return panelTitles[idx]
}

// Locales lists the locales with their own table entry.
func Locales() []string {
	out := make([]string, len(supported))
	for i, t := range supported {
		out[i] = t.String()
	}
	return out
}
