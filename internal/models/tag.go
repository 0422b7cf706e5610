package models

// FallbackTagID marks a tag substituted for an id missing from the loaded tag set
const FallbackTagID int64 = -1

// Tag represents a task label
type Tag struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	BgColor   string `json:"bgColor"`
	TextColor string `json:"textColor"`
}

// FallbackTag returns the placeholder used when a referenced tag is not loaded
func FallbackTag() Tag {
	return Tag{
		ID:        FallbackTagID,
		Name:      "fallback",
		BgColor:   "black",
		TextColor: "white",
	}
}

// TagDraft holds the fields submitted when creating a tag
type TagDraft struct {
	Name      string `json:"name" validate:"required,max=100"`
	BgColor   string `json:"bgColor"`
	TextColor string `json:"textColor"`
}

// TagUpdate holds the fields submitted when editing a tag
type TagUpdate struct {
	ID int64 `json:"id" validate:"gt=0"`
	TagDraft
}
