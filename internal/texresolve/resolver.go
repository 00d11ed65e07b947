// Package texresolve implements the path resolver adapter (component 4.2):
// a single batched call that turns {logical-name, extension-set} pairs into
// resolved paths, without reimplementing kpathsea itself.
package texresolve

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/gogotex/submission-compile/internal/platform/logger"
)

// SystemPrefix marks a resolved path as belonging to the TeX distribution
// rather than the submission bundle.
const SystemPrefix = "SYSTEM:"

// Query is one {logical-name, extension-set} pair to resolve.
type Query struct {
	Name       string
	Extensions []string
}

// Resolver resolves a batch of queries against a sandbox root in one call.
type Resolver interface {
	ResolveBatch(ctx context.Context, sandboxRoot string, queries []Query) (map[string]string, error)
}

// ScriptResolver shells out to an external kpsewhich-based utility once per
// batch, feeding it "name\nextensions\n" pairs on stdin and reading back
// "name\tresult\n" lines.
type ScriptResolver struct {
	ScriptPath string
}

func NewScriptResolver(scriptPath string) *ScriptResolver {
	return &ScriptResolver{ScriptPath: scriptPath}
}

// ResolveBatch invokes the configured script exactly once, regardless of how
// many queries are pending, per the spec's "invoked exactly once per
// request" contract.
func (r *ScriptResolver) ResolveBatch(ctx context.Context, sandboxRoot string, queries []Query) (map[string]string, error) {
	results := make(map[string]string, len(queries))
	if len(queries) == 0 {
		return results, nil
	}
	if r.ScriptPath == "" {
		logger.Warnf("texresolve: no resolver script configured, returning all-not-found for %d queries", len(queries))
		for _, q := range queries {
			results[q.Name] = ""
		}
		return results, nil
	}

	var stdin bytes.Buffer
	for _, q := range queries {
		stdin.WriteString(q.Name)
		stdin.WriteByte('\n')
		stdin.WriteString(strings.Join(q.Extensions, " "))
		stdin.WriteByte('\n')
	}

	cmd := exec.CommandContext(ctx, r.ScriptPath, sandboxRoot)
	cmd.Stdin = &stdin
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("texresolve: resolver script failed: %w (stderr: %s)", err, stderr.String())
	}

	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "\t", 2)
		if len(parts) != 2 {
			continue
		}
		name, path := parts[0], strings.TrimPrefix(parts[1], "./")
		results[name] = path
	}

	for _, q := range queries {
		if _, ok := results[q.Name]; !ok {
			results[q.Name] = ""
		}
	}
	return results, nil
}

// IsSystemPath reports whether a resolved value denotes a TeX-distribution
// path rather than a bundle-relative one, and returns the bare path.
func IsSystemPath(resolved string) (path string, isSystem bool) {
	if strings.HasPrefix(resolved, SystemPrefix) {
		return strings.TrimPrefix(resolved, SystemPrefix), true
	}
	return resolved, false
}
