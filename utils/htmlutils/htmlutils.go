// Copyright 2025 The Waterpoint Authors
// SPDX-License-Identifier: Apache-2.0

// Package htmlutils provides utility functions for working with HTML.
package htmlutils

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/net/html/charset"
)

// breaking elements end the current line of text.
var breaking = map[atom.Atom]bool{
	atom.Br:  true,
	atom.P:   true,
	atom.Div: true,
	atom.Li:  true,
	atom.Tr:  true,
	atom.H1:  true,
	atom.H2:  true,
	atom.H3:  true,
}

type lineWriter struct {
	lines []string
	cur   strings.Builder
}

func (w *lineWriter) text(s string) {
	for _, f := range strings.Fields(s) {
		if w.cur.Len() != 0 {
			w.cur.WriteByte(' ')
		}

		w.cur.WriteString(f)
	}
}

func (w *lineWriter) flush() {
	if w.cur.Len() != 0 {
		w.lines = append(w.lines, w.cur.String())
		w.cur.Reset()
	}
}

func (w *lineWriter) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		w.text(n.Data)
	case html.ElementNode:
		if n.DataAtom == atom.Script || n.DataAtom == atom.Style {
			return
		}

		if breaking[n.DataAtom] {
			w.flush()
		}

		for child := n.FirstChild; child != nil; child = child.NextSibling {
			w.walk(child)
		}

		if breaking[n.DataAtom] {
			w.flush()
		}
	default:
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			w.walk(child)
		}
	}
}

// Lines returns the visible text of n, one entry per rendered line, with
// whitespace collapsed and empty lines dropped.
func Lines(n *html.Node) []string {
	w := &lineWriter{}
	w.walk(n)
	w.flush()

	return w.lines
}

// FragmentLines parses an HTML snippet such as a KML description and returns
// its lines.
func FragmentLines(s string) ([]string, error) {
	n, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML fragment: %w", err)
	}

	return Lines(n), nil
}

// KeyValues reads "Key: value" lines into a map keyed by the lower cased key.
// Lines without a colon are ignored; the first occurrence of a key wins.
func KeyValues(lines []string) map[string]string {
	out := make(map[string]string, len(lines))
	for _, line := range lines {
		k, v, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}

		k = strings.ToLower(strings.TrimSpace(k))
		if _, seen := out[k]; !seen && k != "" {
			out[k] = strings.TrimSpace(v)
		}
	}

	return out
}

// CharsetReader converts input in the named charset to UTF-8. It fits
// xml.Decoder.CharsetReader.
func CharsetReader(label string, input io.Reader) (io.Reader, error) {
	r, err := charset.NewReaderLabel(label, input)
	if err != nil {
		return nil, fmt.Errorf("decoding charset %q: %w", label, err)
	}

	return r, nil
}
