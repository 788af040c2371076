package summarizer

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictPolicy = bluemonday.StrictPolicy()
	// Блочные теги превращаются в пробелы, иначе "<p>a</p><p>b</p>" слипается в "ab".
	blockBreaks = strings.NewReplacer(
		"</p>", " </p>",
		"<br>", " <br>",
		"<br/>", " <br/>",
		"<br />", " <br />",
		"</li>", " </li>",
		"</div>", " </div>",
	)
)

// StripHTML убирает разметку rich-text редактора и схлопывает пробелы.
func StripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}
	clean := strictPolicy.Sanitize(blockBreaks.Replace(s))
	return strings.Join(strings.Fields(html.UnescapeString(clean)), " ")
}
