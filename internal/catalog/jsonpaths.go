package catalog

import (
	"encoding/json"
	"fmt"
)

// JSONPathsDocument is the Redshift JSONPaths file for the event log.
type JSONPathsDocument struct {
	JSONPaths []string `json:"jsonpaths"`
}

// JSONPaths returns the JSONPaths document matching the staging_events load
// columns, one expression per column in column order.
func JSONPaths() JSONPathsDocument {
	paths := make([]string, len(eventFields))
	for i, f := range eventFields {
		paths[i] = fmt.Sprintf("$['%s']", f.Key)
	}
	return JSONPathsDocument{JSONPaths: paths}
}

// Marshal renders the document the way the warehouse expects to read it.
func (d JSONPathsDocument) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal jsonpaths: %w", err)
	}
	return append(data, '\n'), nil
}
