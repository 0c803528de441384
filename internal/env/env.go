package env

import (
	"bufio"
	"errors"
	"io/fs"
	"os"
	"strings"
)

// Load applies KEY=VALUE pairs from the given dotenv files. Variables already
// present in the process environment are never overwritten, and earlier
// files win over later ones. Missing files are skipped. It returns the keys
// it set.
func Load(paths ...string) ([]string, error) {
	var applied []string
	for _, p := range paths {
		if p == "" {
			continue
		}
		f, err := os.Open(p)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return applied, err
		}
		sc := bufio.NewScanner(f)
		for sc.Scan() {
			k, v, ok := parseLine(sc.Text())
			if !ok {
				continue
			}
			if _, set := os.LookupEnv(k); set {
				continue
			}
			if err := os.Setenv(k, v); err != nil {
				_ = f.Close()
				return applied, err
			}
			applied = append(applied, k)
		}
		err = sc.Err()
		_ = f.Close()
		if err != nil {
			return applied, err
		}
	}
	return applied, nil
}

func parseLine(raw string) (string, string, bool) {
	line := strings.TrimSpace(raw)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}
	line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
	k, v, found := strings.Cut(line, "=")
	k = strings.TrimSpace(k)
	if !found || k == "" {
		return "", "", false
	}
	v = strings.TrimSpace(v)
	if n := len(v); n >= 2 && (v[0] == '"' && v[n-1] == '"' || v[0] == '\'' && v[n-1] == '\'') {
		return k, v[1 : n-1], true
	}
	if j := strings.Index(v, " #"); j >= 0 {
		v = strings.TrimSpace(v[:j])
	}
	return k, v, true
}
