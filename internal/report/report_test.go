package report

import (
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
)

type entry struct {
	pair    Pair
	applied bool
}

var entries = []entry{
	{Pair{Original: "My File - Draft.txt", New: "My_File_Draft.txt"}, false},
	{Pair{Original: "_Report_.pdf", New: "Report.pdf"}, true},
	{Pair{Original: "a - b", New: "a_b"}, false},
}

func renderAll(r Renderer) []byte {
	var sb strings.Builder
	for _, e := range entries {
		sb.WriteString(r.Render(e.pair, e.applied))
		sb.WriteString("\n")
	}
	return []byte(sb.String())
}

func TestRender_Golden(t *testing.T) {
	tests := []struct {
		name     string
		renderer Renderer
	}{
		{"plain", Renderer{}},
		{"aligned", Renderer{Align: true}},
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g.Assert(t, tt.name, renderAll(tt.renderer))
		})
	}
}

func TestRender_Prefixes(t *testing.T) {
	p := Pair{Original: "a b", New: "a_b"}

	assert.Equal(t, "   a b\n-->a_b", Renderer{}.Render(p, false))
	assert.Equal(t, "   a b\n==>a_b", Renderer{}.Render(p, true))
}

func TestCompare_Color(t *testing.T) {
	left, right := Renderer{Color: true}.Compare("My File - Draft.txt", "My_File_Draft.txt")

	assert.Equal(t, "My"+ansiRed+"▯"+ansiReset+"File"+ansiRed+"▯-▯"+ansiReset+"Draft.txt", left)
	assert.Equal(t, "My"+ansiGreen+"_"+ansiReset+"File"+ansiGreen+"_"+ansiReset+"Draft.txt", right)
}

func TestCompare_ColorAlignedFillIsGray(t *testing.T) {
	_, right := Renderer{Color: true, Align: true}.Compare("a - b", "a_b")

	assert.Equal(t, "a"+ansiGreen+"_"+ansiReset+ansiGray+"␣␣"+ansiReset+"b", right)
}

func TestCompare_Identical(t *testing.T) {
	left, right := Renderer{Color: true}.Compare("same name", "same name")

	assert.Equal(t, "same▯name", left)
	assert.Equal(t, left, right)
}

func TestWidth(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"abc", 3},
		{"【x】", 5},
		{"ｆｕｌｌ", 8},
		{"é", 1},
		{"", 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Width(tt.in), tt.in)
	}
}
