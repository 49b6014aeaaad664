package matrix

// Dedup returns one config per canonical key. The last config seen for a key
// wins (equal keys are behaviorally identical) and takes the position of the
// key's first occurrence.
func Dedup(configs []TestConfig) []TestConfig {
	index := make(map[string]int, len(configs))
	out := make([]TestConfig, 0, len(configs))
	for _, c := range configs {
		k := c.Key()
		if i, ok := index[k]; ok {
			out[i] = c
			continue
		}
		index[k] = len(out)
		out = append(out, c)
	}
	return out
}
