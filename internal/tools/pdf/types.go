package pdf

// Info describes a PDF document
type Info struct {
	// Path is the resolved file that was inspected
	Path string `json:"path"`

	// Version is the PDF header version, e.g. 1.7
	Version string `json:"version"`

	// Pages is the page count
	Pages int `json:"pages"`

	// PageSizes lists each distinct page size in points with the pages using it
	PageSizes []PageSize `json:"page_sizes,omitempty"`

	Title        string `json:"title,omitempty"`
	Author       string `json:"author,omitempty"`
	Subject      string `json:"subject,omitempty"`
	Keywords     string `json:"keywords,omitempty"`
	Creator      string `json:"creator,omitempty"`
	Producer     string `json:"producer,omitempty"`
	CreationDate string `json:"creation_date,omitempty"`
	ModDate      string `json:"modification_date,omitempty"`

	Encrypted bool  `json:"encrypted"`
	FileSize  int64 `json:"file_size"`
}

// PageSize is one page dimension shared by a run of pages
type PageSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Pages  string  `json:"pages"`
}
