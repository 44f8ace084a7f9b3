// ABOUTME: Renders platform responses and embeds into Matrix notice content
// ABOUTME: Markdown goes through goldmark for the HTML body; pills collapse to plain text

package matrix

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/2389/coven-clan/internal/platform"
)

const matrixTo = "https://matrix.to/#/"

var (
	markdown = goldmark.New(
		goldmark.WithExtensions(extension.Strikethrough),
		goldmark.WithRendererOptions(html.WithHardWraps()),
	)

	pillPattern = regexp.MustCompile(`\[([^\]]+)\]\(https://matrix\.to/#/[^)]+\)`)
)

// Pill renders a Markdown link that Matrix clients display as a mention.
func Pill(target string) string {
	return "[" + target + "](" + matrixTo + target + ")"
}

// Markdown flattens a response into one Markdown document.
func Markdown(resp platform.Response) string {
	parts := make([]string, 0, 1+len(resp.Embeds))
	if resp.Content != "" {
		parts = append(parts, resp.Content)
	}
	for _, e := range resp.Embeds {
		parts = append(parts, embedMarkdown(e))
	}
	return strings.Join(parts, "\n\n")
}

func embedMarkdown(e platform.Embed) string {
	var sb strings.Builder
	if e.Title != "" {
		sb.WriteString("**" + e.Title + "**")
	}
	if e.Description != "" {
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(e.Description)
	}
	return sb.String()
}

// PlainText strips pill links down to their labels.
func PlainText(md string) string {
	return pillPattern.ReplaceAllString(md, "$1")
}

// RenderHTML converts Markdown to HTML. Conversion failures fall back to no HTML.
func RenderHTML(md string) string {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return ""
	}
	return strings.TrimSpace(buf.String())
}

// Notice builds an m.notice carrying md. Only mentioned users are notified.
func Notice(md string, mentioned []string) *event.MessageEventContent {
	content := &event.MessageEventContent{
		MsgType:  event.MsgNotice,
		Body:     PlainText(md),
		Mentions: &event.Mentions{},
	}
	if formatted := RenderHTML(md); formatted != "" {
		content.Format = event.FormatHTML
		content.FormattedBody = formatted
	}
	for _, u := range mentioned {
		content.Mentions.UserIDs = append(content.Mentions.UserIDs, id.UserID(u))
	}
	return content
}
