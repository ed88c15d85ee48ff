package render

import "github.com/tablemap/tablemap/pkg/geometry"

// Theme is the color palette of a diagram. It is a plain value object so
// callers can derive variants (dark mode, print) by copying and adjusting
// fields.
type Theme struct {
	Background  geometry.Color // canvas fill
	Box         geometry.Color // entity body fill
	Border      geometry.Color // entity outline
	HeaderStart geometry.Color // header gradient, top
	HeaderEnd   geometry.Color // header gradient, bottom
	HeaderText  geometry.Color // entity name
	Text        geometry.Color // column names
	TypeText    geometry.Color // column type annotations
	KeyMark     geometry.Color // primary and foreign key markers
	Stats       geometry.Color // statistics footer text
	Line        geometry.Color // relation lines
	LabelFill   geometry.Color // relation label background
	Selection   geometry.Color // selected entity outline
	DragOutline geometry.Color // drag rectangle
}

// DefaultTheme returns the standard light palette.
func DefaultTheme() Theme {
	return Theme{
		Background:  mustColor("#ffffff"),
		Box:         mustColor("#fdfdfd"),
		Border:      mustColor("#4b4b4b"),
		HeaderStart: mustColor("#d5e3f5"),
		HeaderEnd:   mustColor("#9bb7de"),
		HeaderText:  mustColor("#1f3a5f"),
		Text:        mustColor("#202020"),
		TypeText:    mustColor("#707070"),
		KeyMark:     mustColor("#b8860b"),
		Stats:       mustColor("#667788"),
		Line:        mustColor("#515151"),
		LabelFill:   mustColor("#ffffff"),
		Selection:   mustColor("#0066cc"),
		DragOutline: mustColor("#0099ff"),
	}
}

func mustColor(hex string) geometry.Color {
	c, err := geometry.ParseColor(hex)
	if err != nil {
		panic(err)
	}
	return c
}
