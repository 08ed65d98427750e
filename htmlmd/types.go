package htmlmd

// ImageRecord describes one image discovered during extraction.
type ImageRecord struct {
	// Src is the normalized source path (images dir + filename).
	Src string `json:"src"`
	// Alt is the image alt text, possibly empty.
	Alt string `json:"alt"`
	// Title is the optional image title.
	Title string `json:"title,omitempty"`
	// Filename is the bare filename extracted from the original src.
	Filename string `json:"filename"`
	// Markdown is the rendered inline image syntax.
	Markdown string `json:"markdown"`
	// Placeholder is the token inserted into the tree for body images;
	// empty for images inlined into table cells.
	Placeholder string `json:"placeholder,omitempty"`
	// InTable marks images found inside a table, which are inlined into
	// the cell text rather than restored via a standalone placeholder.
	InTable bool `json:"in_table"`
}

// TableRecord holds a converted table and the images found in its cells.
type TableRecord struct {
	Markdown string
	Images   []ImageRecord
}

// MathRecord holds the derived math expression for one math element.
type MathRecord struct {
	Markdown string
}

// Result aggregates the output of a single HTML→Markdown conversion.
type Result struct {
	// Markdown is the final cleaned document.
	Markdown string `json:"markdown"`
	// Tables is the number of table elements processed.
	Tables int `json:"tables"`
	// MathExpressions is the number of math elements processed.
	MathExpressions int `json:"math_expressions"`
	// Images lists every image discovered, table and body alike.
	Images []ImageRecord `json:"images"`
	// OutputLength is the byte length of Markdown.
	OutputLength int `json:"output_length"`
}
