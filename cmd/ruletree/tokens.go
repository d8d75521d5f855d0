package main

import (
	"fmt"
	"strconv"
	"strings"

	"ruletree/pkg/ruletree"
)

// parseTokens reads a comma or space separated token list. An empty
// string is the empty sequence.
func parseTokens(s string) ([]ruletree.Token, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	tokens := make([]ruletree.Token, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseInt(f, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid token %q: %w", f, err)
		}
		tokens = append(tokens, ruletree.Token(v))
	}
	return tokens, nil
}

// parseInsert reads a TOKENS:ID pair such as "1,2,3:7".
func parseInsert(s string) ([]ruletree.Token, ruletree.RuleID, error) {
	i := strings.LastIndexByte(s, ':')
	if i < 0 {
		return nil, 0, fmt.Errorf("invalid pattern %q: want TOKENS:ID", s)
	}
	id, err := strconv.ParseInt(strings.TrimSpace(s[i+1:]), 10, 32)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid rule id in %q: %w", s, err)
	}
	tokens, err := parseTokens(s[:i])
	if err != nil {
		return nil, 0, err
	}
	return tokens, ruletree.RuleID(id), nil
}
