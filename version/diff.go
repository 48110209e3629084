package version

import (
	"fmt"
	"sort"
	"strings"
)

var valueEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\n", `\n`, "\r", `\r`)

func quoteValue(value string) string {
	return "'" + valueEscaper.Replace(value) + "'"
}

// Diff describes every key whose value differs between two snapshots, one line per key in sorted key order. The
// result is empty when nothing changed. Keys present in only one snapshot are compared against the empty string.
func Diff(before, after Snapshot) string {
	keySet := make(map[string]struct{}, before.Len())
	for _, key := range before.keys {
		keySet[key] = struct{}{}
	}
	for _, key := range after.keys {
		keySet[key] = struct{}{}
	}
	keys := make([]string, 0, len(keySet))
	for key := range keySet {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var lines []string
	for _, key := range keys {
		oldValue := before.values[key]
		newValue := after.values[key]
		if oldValue == newValue {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s changed from %s to %s", key, quoteValue(oldValue), quoteValue(newValue)))
	}
	return strings.Join(lines, "\n")
}
