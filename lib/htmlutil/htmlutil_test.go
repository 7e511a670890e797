package htmlutil

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

const page = `<html><head>
<script>var a = 1;</script>
</head><body><p>hello <b>wor<i>ld</i></b>!</p>
<script src="x.js"></script>
<script>bg.form.addInput(form,"ids","42");</script>
</body></html>`

func TestInlineScripts(t *testing.T) {
	doc, err := Parse(page)
	require.NoError(t, err)
	require.Equal(t, []string{"var a = 1;", `bg.form.addInput(form,"ids","42");`}, InlineScripts(doc))
}

func TestNodeText(t *testing.T) {
	doc, err := Parse(page)
	require.NoError(t, err)
	require.Equal(t, "hello world!", NodeText(doc.Find("p").Get(0)))
	require.Equal(t, "", NodeText(nil))
}

func TestFirstSubmatch(t *testing.T) {
	ids := regexp.MustCompile(`"ids","(\d+)"`)
	value, ok := FirstSubmatch([]string{"nothing", `addInput(form,"ids","42")`, `"ids","7"`}, ids)
	require.True(t, ok)
	require.Equal(t, "42", value)

	_, ok = FirstSubmatch(nil, ids)
	require.False(t, ok)
}
