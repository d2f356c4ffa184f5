package service

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkText_PacksParagraphs(t *testing.T) {
	text := "Rule 10-700 covers bonding.\n\nRule 10-702 covers bonding conductors.\r\n\r\nRule 10-704 covers equipment."
	chunks := ChunkText(text, 200, 20)
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0], "10-700")
	assert.Contains(t, chunks[0], "10-704")
}

func TestChunkText_RespectsSizeAndOverlap(t *testing.T) {
	paras := []string{
		strings.Repeat("a", 60),
		strings.Repeat("b", 60),
		strings.Repeat("c", 60),
	}
	chunks := ChunkText(strings.Join(paras, "\n\n"), 100, 10)
	require.Len(t, chunks, 3)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 100)
	}
	// 第二块以上一块末尾的重叠开头
	assert.True(t, strings.HasPrefix(chunks[1], strings.Repeat("a", 10)+" "))
	assert.True(t, strings.HasSuffix(chunks[1], paras[1]))
}

func TestChunkText_SplitsLongParagraph(t *testing.T) {
	long := strings.Repeat("x", 250)
	chunks := ChunkText(long, 100, 20)
	require.Len(t, chunks, 3)
	assert.Equal(t, 100, utf8.RuneCountInString(chunks[0]))
	assert.Equal(t, 100, utf8.RuneCountInString(chunks[1]))
	assert.Equal(t, 90, utf8.RuneCountInString(chunks[2]))
}

func TestChunkText_MultibyteRunes(t *testing.T) {
	chunks := ChunkText(strings.Repeat("Ω", 30), 10, 0)
	require.Len(t, chunks, 3)
	for _, c := range chunks {
		assert.Equal(t, 10, utf8.RuneCountInString(c))
	}
}

func TestChunkText_Empty(t *testing.T) {
	assert.Empty(t, ChunkText("  \n\n  ", 100, 10))
	assert.Empty(t, ChunkText("abc", 0, 0))
}

func TestKeywords(t *testing.T) {
	got := keywords("What is the ampacity of a #10 copper conductor? What about AMPACITY derating?")
	assert.Equal(t, []string{"ampacity", "copper", "conductor", "derating"}, got)
}
