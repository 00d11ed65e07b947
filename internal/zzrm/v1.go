package zzrm

import (
	"strings"

	zerrors "github.com/gogotex/submission-compile/internal/errors"
)

// ParseV1 parses a line-oriented 00README.XXX manifest. Grammar per line:
// "<filename> [toplevelfile|ignore|include|landscape|append|keepcomments|fontmap]..."
// or the bare directives "nostamp" / "nohyperref". A filename with no
// recognized token defaults to usage=toplevel.
func ParseV1(data []byte) (*ZeroZeroReadMe, error) {
	z := New()

	for _, rawLine := range strings.Split(string(data), "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)

		if len(fields) == 1 {
			switch fields[0] {
			case "nostamp":
				z.Stamp = false
				continue
			case "nohyperref":
				z.NoHyperref = true
				continue
			default:
				z.SetSource(UserFile{Filename: fields[0], Usage: UsageToplevel})
				continue
			}
		}

		filename := fields[0]
		uf := UserFile{Filename: filename, Usage: UsageToplevel}
		isFontmapLine := false

		for _, tok := range fields[1:] {
			switch tok {
			case "toplevelfile":
				uf.Usage = UsageToplevel
			case "ignore":
				uf.Usage = UsageIgnore
			case "include":
				uf.Usage = UsageInclude
			case "append":
				uf.Usage = UsageAppend
			case "keepcomments":
				uf.KeepComments = true
			case "landscape":
				uf.Orientation = OrientationLandscape
			case "fontmap":
				isFontmapLine = true
			default:
				return nil, zerrors.NewZZRMError(zerrors.ZZRMParse, filename, nil)
			}
		}

		if isFontmapLine {
			z.Process.Fontmaps = append(z.Process.Fontmaps, filename)
			continue
		}
		z.SetSource(uf)
	}

	return z, nil
}
