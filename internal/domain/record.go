package domain

import (
	"encoding/json"
	"time"
)

// SubjectKindGlobal is the sentinel subject kind for site-wide records.
const SubjectKindGlobal = "global"

// SubjectKindUser is the subject kind for author records.
const SubjectKindUser = "user"

// SchemaRecord is a stored JSON-LD fragment. The triple
// (SubjectID, SubjectKind, SchemaKind) is unique across the store.
type SchemaRecord struct {
	ID          int64           `json:"id"`
	SubjectID   int64           `json:"subjectId"`
	SubjectKind string          `json:"subjectKind"`
	SchemaKind  string          `json:"schemaKind"`
	Payload     json.RawMessage `json:"payload"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

type PageKind string

const (
	PageKindGlobal PageKind = "global"
	PageKindObject PageKind = "object"
	PageKindAuthor PageKind = "author"
)

// PageContext describes what is currently being rendered. It replaces the
// hosting application's ambient current-page/current-user accessors: the
// caller constructs one explicitly and passes it in.
type PageContext struct {
	Kind        PageKind
	SubjectID   int64
	SubjectKind string
}

// GlobalPage is the context for views not tied to any content object.
func GlobalPage() PageContext {
	return PageContext{Kind: PageKindGlobal}
}

// ObjectPage is the context for a singular content object view.
func ObjectPage(subjectID int64, subjectKind string) PageContext {
	return PageContext{Kind: PageKindObject, SubjectID: subjectID, SubjectKind: subjectKind}
}

// AuthorPage is the context for an author archive view.
func AuthorPage(userID int64) PageContext {
	return PageContext{Kind: PageKindAuthor, SubjectID: userID, SubjectKind: SubjectKindUser}
}
