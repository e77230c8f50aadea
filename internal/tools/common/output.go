package common

import (
	"encoding/json"
	"os"
)

// CIResult is the machine-readable summary each admin subcommand prints, one
// JSON document per invocation.
type CIResult struct {
	OK      bool     `json:"ok"`
	Title   string   `json:"title"`
	Details []string `json:"details,omitempty"`
	Error   string   `json:"error,omitempty"`
}

func PrintCIResult(ok bool, title string, details []string, err error) {
	res := CIResult{OK: ok, Title: title, Details: details}
	if err != nil {
		res.Error = err.Error()
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(res)
}
