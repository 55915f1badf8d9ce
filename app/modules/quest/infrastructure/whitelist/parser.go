package whitelist

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Parser turns a whitelist file into raw rows. The first row is the header
// when one is present.
type Parser interface {
	Parse(data []byte) ([][]string, error)
}

// Factory creates the appropriate parser based on file extension.
type Factory struct{}

// NewFactory creates a new parser factory.
func NewFactory() *Factory {
	return &Factory{}
}

// GetParser returns a parser for the given file name.
func (f *Factory) GetParser(fileName string) (Parser, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv", ".txt":
		return NewCSVParser(), nil
	case ".xlsx":
		return NewXLSXParser(), nil
	}
	return nil, fmt.Errorf("unsupported whitelist file type: %s (must be .csv or .xlsx)", fileName)
}
