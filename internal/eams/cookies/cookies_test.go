package cookies

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestMerge(t *testing.T) {
	cases := []struct {
		name       string
		old        Set
		directives []string
		expect     Set
	}{
		{
			name:       "empty",
			old:        nil,
			directives: nil,
			expect:     Set{},
		},
		{
			name: "attributes are dropped",
			old:  Set{},
			directives: []string{
				"JSESSIONID=abc123; Path=/eams; HttpOnly",
				"route=9f; Expires=Wed, 21 Oct 2026 07:28:00 GMT",
			},
			expect: Set{"JSESSIONID": "abc123", "route": "9f"},
		},
		{
			name:       "new values overwrite old ones",
			old:        Set{"JSESSIONID": "old", "CASTGC": "ticket"},
			directives: []string{"JSESSIONID=new; Path=/"},
			expect:     Set{"JSESSIONID": "new", "CASTGC": "ticket"},
		},
		{
			name:       "last directive in a batch wins",
			old:        Set{},
			directives: []string{"a=1", "a=2"},
			expect:     Set{"a": "2"},
		},
		{
			name:       "split happens at the first equals sign",
			old:        Set{},
			directives: []string{"token=YWJj==; Secure"},
			expect:     Set{"token": "YWJj=="},
		},
		{
			name:       "malformed directives are ignored",
			old:        Set{"a": "1"},
			directives: []string{"garbage", "=novalue", ""},
			expect:     Set{"a": "1"},
		},
	}

	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			got := Merge(test.old, test.directives)
			require.Empty(t, cmp.Diff(test.expect, got))
		})
	}
}

func TestMergeIdempotent(t *testing.T) {
	old := Set{"a": "1", "keep": "me"}
	directives := []string{"a=2; Path=/", "b=3"}

	once := Merge(old, directives)
	twice := Merge(once, directives)
	require.Empty(t, cmp.Diff(once, twice))
	require.Equal(t, "me", twice["keep"])
}

func TestMergeDoesNotMutate(t *testing.T) {
	old := Set{"a": "1"}
	_ = Merge(old, []string{"a=2", "b=3"})
	require.Equal(t, Set{"a": "1"}, old)
}

func TestHeaderRoundTrip(t *testing.T) {
	set := Set{"route": "9f", "JSESSIONID": "abc", "CASTGC": "TGT-1"}
	header := set.Header()
	require.Equal(t, "CASTGC=TGT-1; JSESSIONID=abc; route=9f", header)
	require.Empty(t, cmp.Diff(set, Parse(header)))
	require.Equal(t, "", Set{}.Header())
}
