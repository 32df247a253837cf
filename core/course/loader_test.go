package course

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const courseFile = `title = "Core Precalculus"
sym = "pc"
book = "Precalculus: Functions and Graphs"
level = 12.1

#chapter, weight, title,     subject
1,        8,      Chapter 1, Topics from Algebra
2,        9,      Chapter 2, Graphs and Functions
3,         ,               , Polynomial and Rational Functions
4
`

func TestFromReader(t *testing.T) {
	c, err := FromReader(strings.NewReader(courseFile))
	require.NoError(t, err)

	assert.Equal(t, "pc", c.Sym)
	assert.Equal(t, "Core Precalculus", c.Title)
	assert.Equal(t, "Precalculus: Functions and Graphs", c.Book)
	assert.Equal(t, 12.1, c.Level)
	require.NotNil(t, c.Weight)
	assert.InDelta(t, 8+9+1+1, *c.Weight, 1e-9)

	require.Len(t, c.Chapters(), 4)

	ch, ok := c.Chapter(3)
	require.True(t, ok)
	assert.Equal(t, 1.0, ch.Weight, "weight defaults to 1")
	assert.Equal(t, "Chapter 3", ch.Title, "title defaults to Chapter N")
	require.NotNil(t, ch.Subject)
	assert.Equal(t, "Polynomial and Rational Functions", *ch.Subject)

	ch, ok = c.Chapter(4)
	require.True(t, ok)
	assert.Nil(t, ch.Subject)

	_, ok = c.Chapter(9)
	assert.False(t, ok)
}

func TestFromReaderLeadingBlankLines(t *testing.T) {
	c, err := FromReader(strings.NewReader("\n\n" + courseFile))
	require.NoError(t, err)
	assert.Equal(t, "pc", c.Sym)
	assert.Len(t, c.Chapters(), 4)
}

func TestFromReaderErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantMsg string
	}{
		{name: "empty file", data: "", wantMsg: "empty"},
		{name: "header only", data: "sym = \"pc\"\n", wantMsg: "no chapter table"},
		{name: "no sym", data: "title = \"T\"\n\n1, 1\n", wantMsg: "no sym"},
		{name: "bad chapter number", data: "sym = \"pc\"\n\nxyz, 1\n", wantMsg: "not a valid chapter number"},
		{name: "bad weight", data: "sym = \"pc\"\n\n1, heavy\n", wantMsg: "not a valid weight"},
		{name: "bad TOML", data: "sym = pc oops\n\n1, 1\n", wantMsg: "parsing course header"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromReader(strings.NewReader(tt.data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestWithChaptersRecomputesWeight(t *testing.T) {
	c := New(1, "alg", "Book", "Algebra", 1.0)
	assert.Nil(t, c.Weight)

	c.WithChapters([]Chapter{{Seq: 1, Weight: 2}, {Seq: 2, Weight: 3}})
	require.NotNil(t, c.Weight)
	assert.Equal(t, 5.0, *c.Weight)

	c.WithChapters([]Chapter{{Seq: 1, Weight: 2}})
	assert.Equal(t, 2.0, *c.Weight)
}
