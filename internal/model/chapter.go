package model

type Chapter struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Order    int    `json:"order"`
	Language string `json:"language"`
	Content  string `json:"content,omitempty"`
	Mtime    int64  `json:"mtime"`
}

type TocEntry struct {
	SectionID string `json:"section_id"`
	Title     string `json:"title"`
	Level     int    `json:"level"`
}
