package marker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/truffle/types"
)

func TestAttribute_RenderSelector(t *testing.T) {
	tests := []struct {
		name     string
		marker   Attribute
		expected string
	}{
		{
			name:     "exact single",
			marker:   NewAttribute("data-qa", "product-list", Exact),
			expected: `[data-qa="product-list"]`,
		},
		{
			name:     "contains single",
			marker:   NewAttribute("class", "results", Contains),
			expected: `[class~="results"]`,
		},
		{
			name: "keys are sorted",
			marker: Attribute{
				Attributes: map[string]string{"role": "list", "data-qa": "x"},
				MatchMode:  Exact,
			},
			expected: `[data-qa="x"][role="list"]`,
		},
		{
			name:     "quotes are escaped",
			marker:   NewAttribute("title", `say "hi"`, Exact),
			expected: `[title="say \"hi\""]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.marker.RenderSelector()
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestAttribute_RenderSelector_InvalidMode(t *testing.T) {
	m := NewAttribute("data-qa", "x", MatchMode("regex"))

	_, err := m.RenderSelector()
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrInvalidMatchMode))
}

func TestSimple_RenderSelector(t *testing.T) {
	sel, err := NewXPath("//ul[@id='menu']").RenderSelector()
	require.NoError(t, err)
	assert.Equal(t, "//ul[@id='menu']", sel)
	assert.Equal(t, XPath, NewXPath("//a").Kind())
	assert.Equal(t, CSS, Simple{Selector: "ul"}.Kind())
}

func TestFromRecord_UnknownType(t *testing.T) {
	_, err := FromRecord(Record{Type: "regex", Selector: ".*"})
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrUnknownMarkerType))

	_, err = Unmarshal([]byte(`{"type":"shadow","selector":"x"}`))
	assert.True(t, types.IsCode(err, types.ErrUnknownMarkerType))
}

func TestMarshal_WireFormat(t *testing.T) {
	data, err := Marshal(NewCSS("ul.results"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"simple","selector":"ul.results","selectorKind":"css"}`, string(data))

	data, err = Marshal(NewAttribute("data-qa", "product-list", Contains))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"attribute","attributes":{"data-qa":"product-list"},"matchMode":"contains"}`, string(data))
}

func TestMarshal_CanonicalBytes(t *testing.T) {
	a := Attribute{Attributes: map[string]string{"b": "2", "a": "1", "c": "3"}, MatchMode: Exact}
	b := Attribute{Attributes: map[string]string{"c": "3", "a": "1", "b": "2"}, MatchMode: Exact}

	da, err := Marshal(a)
	require.NoError(t, err)
	db, err := Marshal(b)
	require.NoError(t, err)
	assert.Equal(t, string(da), string(db))
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(NewCSS("ul"), NewCSS("ul")))
	assert.False(t, Equal(NewCSS("ul"), NewXPath("ul")))
	assert.False(t, Equal(NewCSS("ul"), NewAttribute("ul", "", Exact)))
	assert.True(t, Equal(Attribute{MatchMode: Exact}, Attribute{Attributes: map[string]string{}, MatchMode: Exact}))
	assert.False(t, Equal(NewAttribute("k", "v", Exact), NewAttribute("k", "v", Contains)))
	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(NewCSS("ul"), nil))
}
