package domain

// Subtitle is an external subtitle track of a clip
type Subtitle struct {
	URL  string `json:"url"`
	Lang string `json:"lang"`
}
