package domain

// SourceType tags the kind of knowledge artifact attached to an agent.
type SourceType string

const (
	SourceDocument   SourceType = "document"
	SourceWebsite    SourceType = "website"
	SourceTable      SourceType = "table"
	SourceSlack      SourceType = "slack"
	SourceJira       SourceType = "jira"
	SourceConfluence SourceType = "confluence"
	SourceOther      SourceType = "other"
)

// Source is a named knowledge artifact an agent draws answers from.
// The chat client only ever reads it.
type Source struct {
	ID          SourceID   `json:"id"`
	Nickname    string     `json:"nickname,omitempty"`
	Name        string     `json:"name,omitempty"`
	Type        SourceType `json:"type"`
	Description string     `json:"description,omitempty"`
}

// Label is what users type after "@": the nickname, else the fallback name.
func (s Source) Label() string {
	if s.Nickname != "" {
		return s.Nickname
	}
	return s.Name
}

// ParseSourceType maps stored type tags to a SourceType, defaulting to SourceOther.
func ParseSourceType(s string) SourceType {
	switch SourceType(s) {
	case SourceDocument, SourceWebsite, SourceTable, SourceSlack, SourceJira, SourceConfluence:
		return SourceType(s)
	case "pdf", "file", "doc":
		return SourceDocument
	case "url", "web":
		return SourceWebsite
	case "csv", "sql", "database":
		return SourceTable
	default:
		return SourceOther
	}
}
