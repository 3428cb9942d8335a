/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package markdown renders admin-authored text to HTML. Raw HTML in the
// source is dropped.
package markdown

import (
	"bufio"
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var md = goldmark.New(
	goldmark.WithExtensions(extension.Linkify, extension.Strikethrough),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// Render converts source to HTML. Empty input renders as "".
func Render(source string) (string, error) {
	if strings.TrimSpace(source) == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// MustRender is Render with errors collapsed to an escaped paragraph.
func MustRender(source string) string {
	out, err := Render(source)
	if err != nil {
		var buf bytes.Buffer
		buf.WriteString("<p>")
		w := bufio.NewWriter(&buf)
		html.DefaultWriter.RawWrite(w, []byte(source))
		w.Flush()
		buf.WriteString("</p>\n")
		return buf.String()
	}
	return out
}
