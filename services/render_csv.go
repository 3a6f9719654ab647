package services

import (
	"bytes"
	"encoding/csv"
)

// CSVRenderer is the built-in Renderer: plain CSV artifacts. The image
// renderer used in production is an external collaborator behind the same
// interface.
type CSVRenderer struct{}

func (CSVRenderer) Render(title string, headers []string, rows [][]string) ([]byte, string, string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(headers); err != nil {
		return nil, "", "", err
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return nil, "", "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, "", "", err
	}
	return buf.Bytes(), "text/csv", "csv", nil
}
