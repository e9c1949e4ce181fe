package pageproxy

import (
	"strings"
	"testing"
)

func TestRewriteEntryAssetPathRepointsRootRelativeRefs(t *testing.T) {
	entry := `<html><head><link href="/assets/index.css" rel="stylesheet"><script src="/assets/index.js"></script></head></html>`

	got := rewriteEntryAssetPath(entry)

	if !strings.Contains(got, `href="/proxy/dashboard/assets/assets/index.css"`) {
		t.Errorf("href not rewritten: %s", got)
	}
	if !strings.Contains(got, `src="/proxy/dashboard/assets/assets/index.js"`) {
		t.Errorf("src not rewritten: %s", got)
	}
}

func TestRewriteEntryAssetPathLeavesProxyRefsAlone(t *testing.T) {
	entry := `<script src="/proxy/dashboard/chunk.js"></script>`

	got := rewriteEntryAssetPath(entry)

	if got != entry {
		t.Errorf("already-proxied ref was rewritten: %s", got)
	}
}

func TestRewriteEntryAssetPathHandlesSingleQuotes(t *testing.T) {
	entry := `<script src='/main.js'></script>`

	got := rewriteEntryAssetPath(entry)

	want := `<script src='/proxy/dashboard/assets/main.js'></script>`
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestRewriteEntryAssetPathIgnoresAbsoluteURLs(t *testing.T) {
	entry := `<script src="https://cdn.example.com/lib.js"></script>`

	got := rewriteEntryAssetPath(entry)

	if got != entry {
		t.Errorf("absolute URL was rewritten: %s", got)
	}
}
