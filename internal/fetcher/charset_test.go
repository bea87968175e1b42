package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"
)

const chinesePage = "<html><head><title>百度一下，你就知道</title></head><body>" +
	"<p>中文网页内容，用于检测编码是否正确。这是一段比较长的中文文本，包含了常见的汉字和标点符号。</p>" +
	"<p>网络爬虫按照一定的规则自动地抓取万维网信息，它是搜索引擎的重要组成部分。</p>" +
	"<p>我们希望抓取到的网页能够被正确地转换为统一的编码，然后保存到本地的输出目录中。</p>" +
	"</body></html>"

func gbkBytes(t *testing.T, s string) []byte {
	t.Helper()
	out, err := simplifiedchinese.GBK.NewEncoder().Bytes([]byte(s))
	require.NoError(t, err)
	return out
}

func TestDeclaredCharset(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"":                             "",
		"text/html":                    "",
		"text/html; charset=GBK":       "GBK",
		"text/html; charset=\"utf-8\"": "utf-8",
		"not a media type;;;":          "",
	}
	for in, want := range cases {
		require.Equal(t, want, declaredCharset(in), in)
	}
}

func TestSniffCharsetEmptyBody(t *testing.T) {
	t.Parallel()
	require.Empty(t, sniffCharset(nil))
}

func TestToUTF8(t *testing.T) {
	t.Parallel()

	t.Run("gbk", func(t *testing.T) {
		t.Parallel()
		out, name, err := toUTF8(gbkBytes(t, chinesePage), "GBK")
		require.NoError(t, err)
		require.Equal(t, "gbk", name)
		require.Equal(t, chinesePage, string(out))
	})

	t.Run("gb-18030 alias", func(t *testing.T) {
		t.Parallel()
		out, name, err := toUTF8(gbkBytes(t, chinesePage), "GB-18030")
		require.NoError(t, err)
		require.Equal(t, "gb18030", name)
		require.Equal(t, chinesePage, string(out))
	})

	t.Run("skips unknown candidates", func(t *testing.T) {
		t.Parallel()
		out, _, err := toUTF8([]byte("plain"), "x-made-up", "utf-8")
		require.NoError(t, err)
		require.Equal(t, "plain", string(out))
	})

	t.Run("unknown charset", func(t *testing.T) {
		t.Parallel()
		_, _, err := toUTF8([]byte("plain"), "x-made-up")
		require.ErrorIs(t, err, errUnknownCharset)
	})

	t.Run("invalid utf-8", func(t *testing.T) {
		t.Parallel()
		_, _, err := toUTF8([]byte{0xff, 0xfe, 0xfd}, "utf-8")
		require.ErrorIs(t, err, errInvalidUTF8)
	})

	t.Run("invalid gbk", func(t *testing.T) {
		t.Parallel()
		out, name, err := toUTF8(invalidGBK, "gbk")
		require.ErrorIs(t, err, errInvalidBytes)
		require.Equal(t, "gbk", name)
		require.Nil(t, out)
	})
}

// "你好" in GBK followed by a truncated lead byte and a byte GBK never uses.
var invalidGBK = []byte{0xc4, 0xe3, 0xba, 0xc3, 0x81, 0x20, 0xff}

func TestFetchInvalidSequenceReturnsRawBytes(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=gbk")
		_, _ = w.Write(invalidGBK)
	}))
	defer server.Close()

	f := newTestFetcher(t, Config{})
	require.Equal(t, invalidGBK, f.Fetch(context.Background(), server.URL, testTimeout))
}

func TestFetchTranscodesGBK(t *testing.T) {
	t.Parallel()

	payload := gbkBytes(t, chinesePage)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=gbk")
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	f := newTestFetcher(t, Config{})
	require.Equal(t, chinesePage, string(f.Fetch(context.Background(), server.URL, testTimeout)))
}
