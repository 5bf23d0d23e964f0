package models

// Project is a single card on the board. It always belongs to exactly one list.
type Project struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ListID      string `json:"listId"`
	UserID      string `json:"userId,omitempty"`
}

// List is a named board column. Projects are kept in display order.
type List struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	UserID   string    `json:"userId,omitempty"`
	Projects []Project `json:"projects"`
}

// Clone returns a copy of the list that shares no memory with the receiver.
func (l List) Clone() List {
	out := l
	out.Projects = make([]Project, len(l.Projects))
	copy(out.Projects, l.Projects)
	return out
}

// IndexOf returns the position of the project inside the list or -1.
func (l List) IndexOf(projectID string) int {
	for i, p := range l.Projects {
		if p.ID == projectID {
			return i
		}
	}
	return -1
}

// CloneLists deep-copies a board snapshot.
func CloneLists(lists []List) []List {
	out := make([]List, len(lists))
	for i, l := range lists {
		out[i] = l.Clone()
	}
	return out
}

// ProjectDocument is the persisted form of a project inside its list document.
type ProjectDocument struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ListID      string `json:"listId"`
}

// ListDocument is the backend-agnostic persisted form of a list.
// CreatedAt (unix nanoseconds) orders lists on read.
type ListDocument struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	UserID    string            `json:"userId"`
	Projects  []ProjectDocument `json:"projects"`
	CreatedAt int64             `json:"createdAt,omitempty"`
}

// ToDocuments converts projects to their persisted form.
func ToDocuments(projects []Project) []ProjectDocument {
	docs := make([]ProjectDocument, 0, len(projects))
	for _, p := range projects {
		docs = append(docs, ProjectDocument{
			ID:          p.ID,
			Title:       p.Title,
			Description: p.Description,
			ListID:      p.ListID,
		})
	}
	return docs
}

// ListFromDocument rebuilds a list from storage. The owning list id is forced
// onto every project so a stale listId inside the document cannot leak out.
func ListFromDocument(doc ListDocument) List {
	l := List{
		ID:       doc.ID,
		Name:     doc.Name,
		UserID:   doc.UserID,
		Projects: make([]Project, 0, len(doc.Projects)),
	}
	for _, p := range doc.Projects {
		l.Projects = append(l.Projects, Project{
			ID:          p.ID,
			Title:       p.Title,
			Description: p.Description,
			ListID:      doc.ID,
			UserID:      doc.UserID,
		})
	}
	return l
}
