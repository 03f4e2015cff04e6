package mailtm

import (
	"strings"

	"golang.org/x/net/html"
)

// blockTags end the current line when opened or closed.
var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"table": true, "ul": true, "ol": true, "blockquote": true, "hr": true,
}

// HTMLToText converts an HTML body into readable plain text. Link
// targets are kept as "text (href)".
func HTMLToText(body string) string {
	z := html.NewTokenizer(strings.NewReader(body))

	var (
		out      strings.Builder
		skip     int
		href     string
		linkText strings.Builder
		inLink   bool
	)

	write := func(s string) {
		if inLink {
			linkText.WriteString(s)
		}
		out.WriteString(s)
	}
	// space separates adjacent inline cells such as <td>a</td><td>b</td>.
	space := func() {
		s := out.String()
		if s != "" && !strings.HasSuffix(s, " ") && !strings.HasSuffix(s, "\n") {
			out.WriteString(" ")
		}
	}
	endLine := func() {
		s := strings.TrimRight(out.String(), " ")
		if s != "" && !strings.HasSuffix(s, "\n") {
			out.WriteString("\n")
		}
	}

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			// io.EOF or a malformed document; keep what was read.
			return tidyText(out.String())

		case html.TextToken:
			if skip > 0 {
				continue
			}
			text := collapseSpace(string(z.Text()))
			if text != "" {
				write(text)
			}

		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			tag := string(name)
			switch {
			case tag == "script" || tag == "style" || tag == "head":
				if tt == html.StartTagToken {
					skip++
				}
			case tag == "a":
				href = ""
				for hasAttr {
					var key, val []byte
					key, val, hasAttr = z.TagAttr()
					if string(key) == "href" {
						href = string(val)
					}
				}
				inLink = tt == html.StartTagToken
				linkText.Reset()
			case tag == "br":
				out.WriteString("\n")
			case tag == "li":
				endLine()
				out.WriteString("* ")
			case blockTags[tag]:
				endLine()
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			switch {
			case tag == "script" || tag == "style" || tag == "head":
				if skip > 0 {
					skip--
				}
			case tag == "a":
				text := strings.TrimSpace(linkText.String())
				if href != "" && href != text && !strings.HasPrefix(href, "#") {
					out.WriteString(" (" + href + ")")
				}
				inLink = false
				href = ""
			case tag == "td" || tag == "th":
				space()
			case blockTags[tag]:
				endLine()
			}
		}
	}
}

// collapseSpace replaces runs of whitespace with a single space.
func collapseSpace(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		if s != "" {
			return " "
		}
		return ""
	}
	joined := strings.Join(fields, " ")
	if strings.TrimLeft(s[:1], " \t\r\n") == "" {
		joined = " " + joined
	}
	if strings.TrimRight(s[len(s)-1:], " \t\r\n") == "" {
		joined += " "
	}
	return joined
}

// tidyText trims every line and collapses more than one blank line.
func tidyText(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := 0
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l == "" {
			blank++
			if blank > 1 {
				continue
			}
		} else {
			blank = 0
		}
		out = append(out, l)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
