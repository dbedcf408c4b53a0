package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripMarkdown(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bold", "a **bold** word", "a bold word"},
		{"underline", "an __underlined__ word", "an underlined word"},
		{"italic", "an *italic* word", "an italic word"},
		{"italic underscore", "an _italic_ word", "an italic word"},
		{"inline code", "run `/give @p dirt`", "run /give @p dirt"},
		{"header", "# Title\nbody", "Title\nbody"},
		{"deep header", "### Section\nbody", "Section\nbody"},
		{"code block removed", "before\n```\ncode here\n```\nafter", "before\n\nafter"},
		{"plain text untouched", "nothing fancy here", "nothing fancy here"},
		{"single underscore kept", "diamond_sword stays", "diamond_sword stays"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripMarkdown(tt.in))
		})
	}
}
