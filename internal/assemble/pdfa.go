package assemble

import (
	"bytes"
	"os"
)

// OutputIntentProbe detects PDF/A conformance by scanning for the
// /OutputIntents catalog entry every PDF/A file carries. This is a direct
// byte scan, not a full PDF object-graph parse, so it stays a plain Go type
// rather than an external collaborator.
type OutputIntentProbe struct{}

func (OutputIntentProbe) IsPDFA(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	return bytes.Contains(data, []byte("/OutputIntents")), nil
}
