package runner

import (
	"fmt"
	"io"
	"os"
	"reflect"
	"sort"

	"github.com/glimte/intercept-go/contracts"
)

// AnalyzeInterrupted reports the call that was terminated by an interceptor
func AnalyzeInterrupted(w io.Writer, record *contracts.CallRecord) {
	fmt.Fprint(w, "\nInterrupted call:\n\n")
	fmt.Fprintln(w, record.String())
	if record != nil {
		fmt.Fprintf(w, "Termination result: %v\n", record.TerminationResult)
	}
}

// AnalyzeResults prints the execution history and writes result to path.
// Strings are written as is, maps slices and arrays as JSON. A nil result
// writes nothing and other types are reported as unserializable.
func AnalyzeResults(w io.Writer, entries []contracts.ExecutionResult, result any, path string) error {
	for i, entry := range entries {
		fmt.Fprintf(w, "\nCall %d:\n\n", i)
		if entry.Record == nil {
			continue
		}
		fmt.Fprintf(w, "  target: %s\n", entry.Record.TargetKind)
		fmt.Fprintf(w, "  duration: %s\n", entry.Duration)
		for _, key := range extraKeys(entry.Record) {
			fmt.Fprintf(w, "  %s: %v\n", key, entry.Record.ExtraData[key])
		}
	}

	if result == nil {
		return nil
	}

	var data []byte
	switch v := result.(type) {
	case string:
		fmt.Fprintln(w, v)
		data = []byte(v)
	case []byte:
		fmt.Fprintln(w, string(v))
		data = v
	default:
		switch reflect.ValueOf(result).Kind() {
		case reflect.Map, reflect.Slice, reflect.Array:
			encoded, err := json.Marshal(result)
			if err != nil {
				fmt.Fprintln(w, "Unserializable result type!")
				return nil
			}
			data = encoded
		default:
			fmt.Fprintln(w, "Unserializable result type!")
			return nil
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func extraKeys(record *contracts.CallRecord) []string {
	keys := make([]string, 0, len(record.ExtraData))
	for k := range record.ExtraData {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
