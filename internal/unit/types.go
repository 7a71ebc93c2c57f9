package unit

// Ref is the contract for unit identity and cached display data.
type Ref struct {
	ID   string `toml:"id" yaml:"id" json:"id" validate:"required"`
	Name string `toml:"name" yaml:"name" json:"name"`
}

// Relation is one root unit plus the ordered children loaded alongside it.
type Relation struct {
	ID       string `toml:"id" yaml:"id" json:"id"`
	Name     string `toml:"name" yaml:"name" json:"name"`
	Children []Ref  `toml:"children" yaml:"children" json:"children"`
}

// Ref returns the root identity of the relation.
func (r Relation) Ref() Ref {
	return Ref{ID: r.ID, Name: r.Name}
}

// Clone returns a relation that shares no backing storage with r.
func (r Relation) Clone() Relation {
	out := Relation{ID: r.ID, Name: r.Name, Children: make([]Ref, len(r.Children))}
	copy(out.Children, r.Children)
	return out
}

// Graph is the persisted root->children mapping. Order of Relations and of
// each Children list is meaningful.
type Graph struct {
	Relations []Relation `toml:"relations" yaml:"relations" json:"relations"`
}

// Clone returns a deep copy of g.
func (g Graph) Clone() Graph {
	out := Graph{Relations: make([]Relation, 0, len(g.Relations))}
	for _, rel := range g.Relations {
		out.Relations = append(out.Relations, rel.Clone())
	}
	return out
}
