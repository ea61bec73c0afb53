package models

type Account struct {
	Id      int64
	Name    string
	Salt    string
	Created int64
}

type Visibility int

const (
	VisibilityPublic Visibility = iota
	VisibilityUnlisted
	VisibilityPrivate
)

func (v Visibility) String() string {
	switch v {
	case VisibilityPublic:
		return "PUBLIC"
	case VisibilityUnlisted:
		return "UNLISTED"
	case VisibilityPrivate:
		return "PRIVATE"
	}
	return "UNKNOWN"
}

func ParseVisibility(s string) (Visibility, bool) {
	switch s {
	case "PUBLIC":
		return VisibilityPublic, true
	case "UNLISTED":
		return VisibilityUnlisted, true
	case "PRIVATE":
		return VisibilityPrivate, true
	}
	return VisibilityPublic, false
}

type Text struct {
	Id         int64
	Title      string
	Body       string
	AuthorId   int64
	AuthorName string
	Visibility Visibility
	Views      int64
	CreatedAt  int64 // unix millis
	EditedAt   int64 // unix millis, bumped on every mutation
}
