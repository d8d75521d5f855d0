package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ruletree/pkg/ruletree"
)

func TestParseTokens(t *testing.T) {
	tests := []struct {
		in      string
		want    []ruletree.Token
		wantErr bool
	}{
		{in: "1,2,3", want: []ruletree.Token{1, 2, 3}},
		{in: "4 5", want: []ruletree.Token{4, 5}},
		{in: "-1, 2", want: []ruletree.Token{-1, 2}},
		{in: "", want: []ruletree.Token{}},
		{in: "1,x", wantErr: true},
		{in: "99999999999", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseTokens(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseInsert(t *testing.T) {
	tokens, id, err := parseInsert("1,2,3:7")
	require.NoError(t, err)
	assert.Equal(t, []ruletree.Token{1, 2, 3}, tokens)
	assert.Equal(t, ruletree.RuleID(7), id)

	tokens, id, err = parseInsert(":4")
	require.NoError(t, err)
	assert.Empty(t, tokens)
	assert.Equal(t, ruletree.RuleID(4), id)

	_, _, err = parseInsert("1,2,3")
	assert.Error(t, err)
	_, _, err = parseInsert("1,2:x")
	assert.Error(t, err)
}
