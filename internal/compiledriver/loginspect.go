package compiledriver

import (
	"regexp"
	"sync"
)

// texLogErrorPatterns recovers a missing file's name from an engine log
// line. Order doesn't matter: every pattern runs against the whole log
// independently. Each must carry exactly one capture group, the filename.
var texLogErrorPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^! LaTeX Error: File \x60([^'\\]*)' not found\.`),
	regexp.MustCompile(`^! I can't find file \x60([^'\\]*)'\.`),
	regexp.MustCompile(`.*?:\d*: LaTeX Error: File \x60([^'\\]*)' not found\.`),
	regexp.MustCompile(`^LaTeX Warning: File \x60([^'\\]*)' not found`),
	regexp.MustCompile("^Package .* [fF]ile `([^'\\\\]*)' not found"),
	regexp.MustCompile("^Package .* No file `([^'\\\\]*)'"),
	regexp.MustCompile(`Error: pdflatex \(file ([^)]*)\): cannot find image file`),
	regexp.MustCompile(`: File \x60(.*)' not found:\s*$`),
	regexp.MustCompile(`! Unable to load picture or PDF file '([^'\\]+)'.`),
	regexp.MustCompile(`Package pdftex\.def Error: File (.*) not found: using draft setting\.`),
	regexp.MustCompile(`.*?:\d*: LaTeX Error:  Unknown graphics extension: (.*)\.`),
}

// logInspection is the result of running texLogErrorPatterns against one
// engine run's log.
type logInspection struct {
	MissingFiles []string // deduped filenames recovered from the matches
	MatchedLines []string // the raw lines each pattern matched, in match order
	PatternHits  int      // matching lines counted over all patterns (with breakOnFound, at most one per pattern)
}

// inspectLog recovers the set of missing filenames an engine run's log
// blames a failure or warning on, running every pattern in
// texLogErrorPatterns concurrently (one goroutine per pattern, like the
// original's ThreadPool(processes=len(patterns))) and accumulating hits into
// lock-guarded containers shared across the probes. breakOnFound mirrors the
// original: a pattern stops scanning its own lines at its first hit rather
// than collecting duplicates.
func inspectLog(log string, breakOnFound bool) logInspection {
	if log == "" {
		return logInspection{}
	}
	lines := splitLines(log)

	missing := newAtomicStringSet()
	var hits atomicInt
	var matched atomicStringList

	var wg sync.WaitGroup
	wg.Add(len(texLogErrorPatterns))
	for _, pattern := range texLogErrorPatterns {
		pattern := pattern
		go func() {
			defer wg.Done()
			for _, line := range lines {
				m := pattern.FindStringSubmatch(line)
				if m == nil {
					continue
				}
				missing.add(m[1])
				matched.append(line)
				hits.increment()
				if breakOnFound {
					return
				}
			}
		}()
	}
	wg.Wait()

	return logInspection{
		MissingFiles: missing.list(),
		MatchedLines: matched.list(),
		PatternHits:  hits.load(),
	}
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	lines = append(lines, s[start:])
	return lines
}
