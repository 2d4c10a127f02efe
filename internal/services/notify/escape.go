package notify

import "strings"

var markdownV2Replacer = strings.NewReplacer(
	"_", "\\_",
	"*", "\\*",
	"[", "\\[",
	"]", "\\]",
	"(", "\\(",
	")", "\\)",
	"~", "\\~",
	"`", "\\`",
	">", "\\>",
	"#", "\\#",
	"+", "\\+",
	"-", "\\-",
	"=", "\\=",
	"|", "\\|",
	"{", "\\{",
	"}", "\\}",
	".", "\\.",
	"!", "\\!",
)

// EscapeMarkdownV2 escapes every character the MarkdownV2 dialect reserves.
// All user-controlled text goes through it before delivery, otherwise a
// stray underscore in a nickname fails the whole send.
func EscapeMarkdownV2(text string) string {
	return markdownV2Replacer.Replace(text)
}
