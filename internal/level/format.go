package level

import (
	"encoding/json"
	"regexp"
)

var (
	deepLine    = regexp.MustCompile(`(\r\n|\r|\n)( ){6,}`)
	deepClosing = regexp.MustCompile(`(\r\n|\r|\n)( ){4,}([}\]])`)
)

// MarshalDepthLimited indents v by two spaces but only breaks lines for the first
// three levels. Anything nested deeper stays on its parent's line.
func MarshalDepthLimited(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	data = deepLine.ReplaceAll(data, []byte(" "))
	data = deepClosing.ReplaceAll(data, []byte(" ${3}"))
	return data, nil
}
