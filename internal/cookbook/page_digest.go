package cookbook

import (
	"context"
	"fmt"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/pocketomega/pocket-flow/pkg/core"
)

var samplePages = []string{
	`<html><head><title>PocketFlow</title></head><body><h1>Graphs</h1><p>Nodes, <b>actions</b> and flows.</p></body></html>`,
	`<html><head><title>Batch processing</title></head><body><ul><li>sequential</li><li>parallel</li></ul></body></html>`,
	`<html><head><title>Retries</title></head><body><p>Each node retries <code>exec</code> with a fixed wait.</p></body></html>`,
}

// Digest is the extracted summary of one HTML page.
type Digest struct {
	Title    string `json:"title"`
	Markdown string `json:"markdown"`
}

type digestState struct {
	Pages   []string
	Digests []Digest
}

// PageDigest converts HTML pages in parallel, extracting each title and a
// Markdown rendering of the body.
func PageDigest() Recipe {
	return Recipe{
		Name:        "page-digest",
		Description: "Parallel batch node: HTML pages to title + Markdown, in input order.",
		Params:      map[string]string{"pages": "[<html>...] (three built-in samples)"},
		Run: func(ctx context.Context, env Env, in Input) (Output, error) {
			pages, err := stringsArg(in, "pages", samplePages)
			if err != nil {
				return nil, err
			}

			node := core.NewParallelBatchNode[digestState, string, Digest](core.BatchFuncs[digestState, string, Digest]{
				PrepFn: func(_ context.Context, s *digestState) ([]string, error) { return s.Pages, nil },
				ExecFn: func(_ context.Context, page string) (Digest, error) { return digest(page) },
				PostFn: func(_ context.Context, s *digestState, _ []string, out []Digest) (core.Action, error) {
					s.Digests = out
					return "", nil
				},
			}, env.entry("page-digest")...)

			state := &digestState{Pages: pages}
			if _, err := node.Run(ctx, state); err != nil {
				return nil, err
			}
			return Output{"pages": state.Digests}, nil
		},
	}
}

func digest(page string) (Digest, error) {
	title, err := extractTitle(page)
	if err != nil {
		return Digest{}, err
	}
	md, err := htmltomarkdown.ConvertString(page)
	if err != nil {
		return Digest{}, fmt.Errorf("convert to markdown: %w", err)
	}
	return Digest{Title: title, Markdown: strings.TrimSpace(md)}, nil
}

// extractTitle returns the text of the first <title> element, or "" if none.
func extractTitle(page string) (string, error) {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	var find func(*html.Node) string
	find = func(n *html.Node) string {
		if n.Type == html.ElementNode && n.DataAtom == atom.Title {
			var b strings.Builder
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.TextNode {
					b.WriteString(c.Data)
				}
			}
			return strings.TrimSpace(b.String())
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if t := find(c); t != "" {
				return t
			}
		}
		return ""
	}
	return find(doc), nil
}
