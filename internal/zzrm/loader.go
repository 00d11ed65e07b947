package zzrm

import (
	"os"
	"path/filepath"
	"strings"

	zerrors "github.com/gogotex/submission-compile/internal/errors"
)

var v2Extensions = map[string]bool{
	".yaml": true, ".yml": true, ".json": true, ".jsn": true, ".ndjson": true, ".toml": true,
}

// candidate is a 00README-stem file found in a bundle directory.
type candidate struct {
	path string
	ext  string
}

// Load scans dir for 00README* files and parses the one the filename
// policy selects: a v2 file wins over v1 when both are present; more than
// one v2 (or more than one v1) file is a fatal ZZRMError.
func Load(dir string) (*ZeroZeroReadMe, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, zerrors.NewZZRMError(zerrors.ZZRMParse, dir, err)
	}

	var v1Candidates, v2Candidates []candidate
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		if !strings.EqualFold(stem, "00README") {
			continue
		}
		ext := strings.ToLower(filepath.Ext(name))
		c := candidate{path: filepath.Join(dir, name), ext: ext}
		if v2Extensions[ext] {
			v2Candidates = append(v2Candidates, c)
		} else {
			v1Candidates = append(v1Candidates, c)
		}
	}

	if len(v2Candidates) > 1 {
		return nil, zerrors.NewZZRMError(zerrors.ZZRMMultipleFiles, v2Candidates[1].path, nil)
	}
	if len(v1Candidates) > 1 {
		return nil, zerrors.NewZZRMError(zerrors.ZZRMMultipleFiles, v1Candidates[1].path, nil)
	}

	if len(v2Candidates) == 1 {
		return loadV2(v2Candidates[0].path, v2Candidates[0].ext)
	}
	if len(v1Candidates) == 1 {
		return loadV1(v1Candidates[0].path)
	}
	return nil, nil
}

func loadV1(path string) (*ZeroZeroReadMe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, zerrors.NewZZRMError(zerrors.ZZRMParse, path, err)
	}
	return ParseV1(data)
}

func loadV2(path, ext string) (*ZeroZeroReadMe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, zerrors.NewZZRMError(zerrors.ZZRMParse, path, err)
	}
	return ParseV2(data, ext)
}
