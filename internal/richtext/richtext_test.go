package richtext

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestMarkdownRendersReport(t *testing.T) {
	out := Markdown("## 코스 평가\n- **이동**이 적당합니다.\n- [지도](https://map.example.com)\n")
	doc := parse(t, string(out))

	require.Equal(t, "코스 평가", doc.Find("h2").Text())
	require.Equal(t, 2, doc.Find("li").Length())
	require.Equal(t, "이동", doc.Find("strong").Text())

	link := doc.Find("a")
	rel, _ := link.Attr("rel")
	require.Contains(t, rel, "nofollow")
}

func TestMarkdownEscapesScripts(t *testing.T) {
	out := string(Markdown("hello <script>alert(1)</script>\n\n<img src=x onerror=alert(1)>"))
	require.NotContains(t, out, "<script")
	require.NotContains(t, out, "onerror")
}

func TestMarkdownEmpty(t *testing.T) {
	require.Empty(t, string(Markdown("  \n")))
}

func TestHTMLKeepsFormatting(t *testing.T) {
	out := string(HTML(`<span class="kw">야경</span><b>좋아요</b><iframe src="x"></iframe><a href="javascript:alert(1)">x</a>`))
	doc := parse(t, out)

	require.Equal(t, "야경", doc.Find("span.kw").Text())
	require.Equal(t, "좋아요", doc.Find("b").Text())
	require.Zero(t, doc.Find("iframe").Length())
	require.NotContains(t, out, "javascript:")
}

func TestPlainText(t *testing.T) {
	require.Equal(t, "청계천 일대를 수놓는 빛의 축제입니다.", PlainText("<p>청계천 일대를 수놓는 <b>빛의 축제</b>입니다.</p>"))
	require.Equal(t, "첫 줄 둘째 줄", PlainText("첫 줄<br>둘째 줄"))
	require.Equal(t, "a b", PlainText("  a \n b "))
	require.Equal(t, "Tom & Jerry", PlainText("Tom &amp; Jerry"))
}

func TestPreformattedEscapes(t *testing.T) {
	require.Equal(t, "1. &lt;주의&gt;", string(Preformatted(" 1. <주의> ")))
}
