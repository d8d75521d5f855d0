package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const scenarioRules = `apiVersion: ruletree.io/v1
kind: RuleSet
metadata:
  name: scenario
spec:
  mode: containment
  rules:
    - id: 1
      name: long
      patterns:
        - [1, 2, 3, 4]
    - id: 2
      name: short
      patterns:
        - [2, 3, 4]
`

func writeRules(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}
