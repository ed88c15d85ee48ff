package diagram

import (
	"encoding/json"

	"github.com/tablemap/tablemap/pkg/errors"
	"github.com/tablemap/tablemap/pkg/layout"
)

// LayoutKind selects the placement strategy.
type LayoutKind string

const (
	LayoutGrid  LayoutKind = "grid"
	LayoutGraph LayoutKind = "graph"
)

// Options holds the presentation state of a diagram.
//
// ShowColumns and ShowKeyColumnsOnly are mutually exclusive; enabling one
// through SetOptions disables the other. With both off, entity boxes show
// only their header.
type Options struct {
	Zoom               float64
	ShowColumns        bool
	ShowKeyColumnsOnly bool
	ShowNulls          bool
	ShowLines          bool
	ShowLabels         bool
	ShowStatistics     bool
	Layout             LayoutKind
	LayoutActive       bool // force simulation still running
	Grid               layout.GridOptions
}

// DefaultOptions returns the initial presentation state.
func DefaultOptions() Options {
	return Options{
		Zoom:        1.0,
		ShowColumns: true,
		ShowLines:   true,
		ShowLabels:  true,
		Layout:      LayoutGrid,
		Grid:        layout.DefaultGridOptions(),
	}
}

// optionsDoc is the JSON persistence format of a diagram's state. Positions
// are stored per entity name so a document survives databases being reopened.
type optionsDoc struct {
	Zoom       float64           `json:"zoom"`
	Columns    bool              `json:"columns"`
	KeyColumns bool              `json:"keycolumns"`
	Nulls      bool              `json:"nulls"`
	Lines      bool              `json:"lines"`
	Labels     bool              `json:"labels"`
	Statistics bool              `json:"statistics"`
	Items      map[string][2]int `json:"items"`
	Layout     layoutDoc         `json:"layout"`
}

type layoutDoc struct {
	Layout string             `json:"layout"`
	Active bool               `json:"active"`
	Grid   layout.GridOptions `json:"grid"`
}

func marshalIndent(doc optionsDoc) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "failed to serialize options")
	}
	return data, nil
}

// ValidateOptionsDocument checks that data parses as an options document
// without applying it to any diagram.
func ValidateOptionsDocument(data []byte) error {
	doc, err := parseOptionsDoc(data)
	if err != nil {
		return err
	}
	if doc.Columns && doc.KeyColumns {
		return errors.New(errors.ErrCodeInvalidOptions, "columns and keycolumns are mutually exclusive")
	}
	return nil
}

func parseOptionsDoc(data []byte) (optionsDoc, error) {
	var doc optionsDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, errors.Wrap(errors.ErrCodeInvalidOptions, err, "malformed options document")
	}
	if doc.Zoom != 0 {
		if err := errors.ValidateZoom(doc.Zoom); err != nil {
			return doc, err
		}
	}
	if doc.Layout.Layout != "" {
		if err := errors.ValidateLayout(doc.Layout.Layout); err != nil {
			return doc, err
		}
	}
	return doc, nil
}
