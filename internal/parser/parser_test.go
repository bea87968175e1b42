package parser

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestJoinURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		href string
		want string
	}{
		{name: "parent relative", src: "http://a.com/x/page.html", href: "../y/z.html", want: "http://a.com/y/z.html"},
		{name: "scheme relative", src: "http://a.com/", href: "//cdn.com/img.png", want: "http://cdn.com/img.png"},
		{name: "javascript", src: "http://a.com/", href: "javascript:void(0)", want: ""},
		{name: "javascript upper case", src: "http://a.com/", href: "JavaScript:go()", want: ""},
		{name: "absolute", src: "http://a.com/", href: "http://b.com/p", want: "http://b.com/p"},
		{name: "sibling", src: "http://a.com/x/page.html", href: "other.html", want: "http://a.com/x/other.html"},
		{name: "root relative", src: "https://a.com/x/y/", href: "/top", want: "https://a.com/top"},
		{name: "query only", src: "http://a.com/list?page=1", href: "?page=2", want: "http://a.com/list?page=2"},
		{name: "fragment kept", src: "http://a.com/doc", href: "#sec", want: "http://a.com/doc#sec"},
		{name: "scheme relative keeps rest", src: "https://a.com/", href: "//cdn.com/a?b=c", want: "http://cdn.com/a?b=c"},
		{name: "surrounding whitespace", src: "http://a.com/", href: "  page.html\n", want: "http://a.com/page.html"},
		{name: "unparsable href", src: "http://a.com/", href: "http://[::1", want: ""},
		{name: "unparsable source", src: "http://%zz/", href: "page.html", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, JoinURL(tt.src, tt.href))
		})
	}
}

func TestExtractLinksDocumentOrder(t *testing.T) {
	t.Parallel()

	page := []byte(`<html><head>
<link rel="stylesheet" href="/style.css">
<script src="/app.js"></script>
</head><body>
<a href="page1.html">one</a>
<a name="anchor-without-href">skip</a>
<img src="/img.png">
<a href="javascript:void(0)">js</a>
<a href="//cdn.com/lib.js">cdn</a>
<a href="http://b.com/p">b</a>
</body></html>`)

	got := New(zap.NewNop()).ExtractLinks(page, "http://a.com/dir/index.html")
	require.Equal(t, []string{
		"http://a.com/style.css",
		"http://a.com/dir/page1.html",
		"http://cdn.com/lib.js",
		"http://b.com/p",
	}, got)
}

func TestExtractLinksMalformedHTML(t *testing.T) {
	t.Parallel()

	page := []byte(`<html><body><div><a href="first.html">one<p><a href='second.html'>two
<a href=third.html>three</div></span><a href="http://[::1">bad</a><a href="fourth.html"`)

	got := New(nil).ExtractLinks(page, "http://a.com/")
	require.Equal(t, []string{
		"http://a.com/first.html",
		"http://a.com/second.html",
		"http://a.com/third.html",
	}, got)
}

func TestExtractLinksEmptyInputs(t *testing.T) {
	t.Parallel()

	e := New(nil)
	require.Empty(t, e.ExtractLinks(nil, "http://a.com/"))
	require.Empty(t, e.ExtractLinks([]byte(`<a href="x.html">x</a>`), "http://%zz/"))
	require.Empty(t, e.ExtractLinks([]byte(`<p>no links here</p>`), "http://a.com/"))
}
