package scanner

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestZhibo8ParserContainers(t *testing.T) {
	t.Parallel()

	doc := mustDoc(t, `
	<div class="video v_change">
	  <span class="time">2024-05-01 10:30</span>
	  <a href="//news.example/zuqiu/2024-05-01/a.htm" target="_blank"> Messi   scores again </a>
	  <a href="//news.example/zuqiu/2024-05-01/b.htm"></a>
	</div>
	<div class="mixed_type_video">
	  <a href="/zuqiu/2024-05-02/c.htm">Argentina squad named</a>
	</div>
	<ul class="articleList"><li><a href="/ignored.htm">Not used when containers exist</a></li></ul>`)

	candidates, err := NewZhibo8Parser().Parse(doc)
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	assert.Equal(t, "Messi scores again", candidates[0].Title)
	assert.Equal(t, "//news.example/zuqiu/2024-05-01/a.htm", candidates[0].Link)
	assert.Equal(t, "2024-05-01", candidates[0].RawDate)

	assert.Equal(t, "Argentina squad named", candidates[1].Title)
	assert.Empty(t, candidates[1].RawDate)
}

func TestZhibo8ParserFallbackList(t *testing.T) {
	t.Parallel()

	doc := mustDoc(t, `
	<div class="dataList"><ul>
	  <li><a href="/news/2024/0501/x.htm">Messi news</a><span class="post-time">2024-05-01</span></li>
	  <li><a href="/news/2024/0502/y.htm">Other news</a></li>
	</ul></div>`)

	candidates, err := NewZhibo8Parser().Parse(doc)
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, "Messi news", candidates[0].Title)
	assert.Equal(t, "2024-05-01", candidates[0].RawDate)
}

func TestAnchorParser(t *testing.T) {
	t.Parallel()

	doc := mustDoc(t, `<p><a href="/a">First</a><a>no href</a><a href="/b"> </a><a href="https://x/c">Third</a></p>`)

	candidates, err := NewAnchorParser().Parse(doc)
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, "First", candidates[0].Title)
	assert.Equal(t, "https://x/c", candidates[1].Link)
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	reg := DefaultRegistry()
	assert.Equal(t, []string{"anchors", "zhibo8"}, reg.Names())

	p, err := reg.Resolve("zhibo8")
	require.NoError(t, err)
	assert.Equal(t, "zhibo8", p.Name())

	_, err = reg.Resolve("rss")
	assert.Error(t, err)
}
