package model

const (
	SessionStateActive = 1
	SessionStateEnded  = 2
)

type Preferences struct {
	Difficulty   string `json:"difficulty,omitempty"`
	ShowExamples bool   `json:"show_examples,omitempty"`
	Language     string `json:"language,omitempty"`
}

type Session struct {
	ID          string      `json:"id"`
	Preferences Preferences `json:"preferences"`
	State       int         `json:"state"`
	Ctime       int64       `json:"ctime"`
	LastActive  int64       `json:"last_active"`
}
