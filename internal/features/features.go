// Package features normalizes CPU feature tokens, reads the host's feature
// list and decides whether a set of architecture flags can run natively.
package features

import (
	"sort"
	"strings"
)

var separators = strings.NewReplacer("_", "", "-", "", ".", "")

// Normalize canonicalizes a raw feature token: lowercase, with the
// separators '_', '-' and '.' removed.
func Normalize(raw string) string {
	return separators.Replace(strings.ToLower(strings.TrimSpace(raw)))
}

// HostFeatureSet is the set of normalized feature tokens reported by the host.
// It is built once per run and only read afterwards.
type HostFeatureSet struct {
	tokens map[string]struct{}
}

// NewHostFeatureSet builds a set from raw tokens, normalizing each.
func NewHostFeatureSet(raw ...string) HostFeatureSet {
	s := HostFeatureSet{tokens: make(map[string]struct{}, len(raw))}
	for _, r := range raw {
		if t := Normalize(r); t != "" {
			s.tokens[t] = struct{}{}
		}
	}
	return s
}

// Len returns the number of distinct tokens.
func (s HostFeatureSet) Len() int {
	return len(s.tokens)
}

// Tokens returns the sorted token list.
func (s HostFeatureSet) Tokens() []string {
	out := make([]string, 0, len(s.tokens))
	for t := range s.tokens {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Supports reports whether a requested token is satisfied by some host token
// by exact equality, or by being a prefix or a suffix of it.
//
// The prefix/suffix rule is permissive: a short request can match an
// unrelated longer host token. That precision gap is accepted so compiler
// spellings (avx512bw) match kernel spellings (avx512_bw) without a table.
func (s HostFeatureSet) Supports(token string) bool {
	req := Normalize(token)
	if req == "" {
		return true
	}
	if _, ok := s.tokens[req]; ok {
		return true
	}
	for host := range s.tokens {
		if strings.HasPrefix(host, req) || strings.HasSuffix(host, req) {
			return true
		}
	}
	return false
}

// Compatible reports whether every feature requested by archFlags is
// supported. An empty request is vacuously compatible.
func (s HostFeatureSet) Compatible(archFlags string) bool {
	for _, tok := range RequestedTokens(archFlags) {
		if !s.Supports(tok) {
			return false
		}
	}
	return true
}

// Missing returns the requested tokens the host cannot satisfy.
func (s HostFeatureSet) Missing(archFlags string) []string {
	var missing []string
	for _, tok := range RequestedTokens(archFlags) {
		if !s.Supports(tok) {
			missing = append(missing, tok)
		}
	}
	return missing
}

// RequestedTokens extracts the normalized feature tokens named by a
// space-separated architecture flag string.
//
//	-mavx2                   -> avx2
//	-march=armv8.2-a+fp16    -> fp16 (the base architecture is the family baseline)
//	-mfpu=neon, -mtune=...   -> skipped, these select ABI or tuning, not features
func RequestedTokens(archFlags string) []string {
	var out []string
	for _, flag := range strings.Fields(archFlags) {
		switch {
		case strings.HasPrefix(flag, "-march="):
			parts := strings.Split(strings.TrimPrefix(flag, "-march="), "+")
			for _, ext := range parts[1:] {
				if t := Normalize(ext); t != "" {
					out = append(out, t)
				}
			}
		case strings.HasPrefix(flag, "-m"):
			name := flag[2:]
			if strings.Contains(name, "=") {
				continue
			}
			if t := Normalize(name); t != "" {
				out = append(out, t)
			}
		}
	}
	return out
}
