package stringify

import "encoding/json"

// InterfaceToString renders v as indented JSON for human consumption.
func InterfaceToString(v interface{}) (string, error) {
	prettyJSON, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(prettyJSON), nil
}
