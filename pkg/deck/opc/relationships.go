package opc

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

// Relationship represents a relationship in a part's .rels file
type Relationship struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr,omitempty"`
}

// IsExternal reports whether the target lives outside the package.
func (r Relationship) IsExternal() bool {
	return strings.EqualFold(r.TargetMode, "External")
}

// Relationships represents the collection of relationships owned by one source part
type Relationships struct {
	XMLName      xml.Name       `xml:"Relationships"`
	Namespace    string         `xml:"xmlns,attr"`
	Relationship []Relationship `xml:"Relationship"`

	// loaded marks collections read from the archive so empty ones survive a round-trip
	loaded bool
}

// NewRelationships creates an empty relationship collection
func NewRelationships() *Relationships {
	return &Relationships{Namespace: NamespaceRelationships}
}

func parseRelationships(data []byte) (*Relationships, error) {
	var rels Relationships
	if err := xml.Unmarshal(data, &rels); err != nil {
		return nil, err
	}
	if rels.Namespace == "" {
		rels.Namespace = NamespaceRelationships
	}
	rels.loaded = true
	return &rels, nil
}

func (r *Relationships) marshal() ([]byte, error) {
	out := Relationships{
		Namespace:    NamespaceRelationships,
		Relationship: r.Relationship,
	}
	body, err := xml.Marshal(out)
	if err != nil {
		return nil, err
	}
	return append([]byte(xmlHeader), body...), nil
}

// Get returns the relationship with the given id
func (r *Relationships) Get(id string) (Relationship, bool) {
	for _, rel := range r.Relationship {
		if rel.ID == id {
			return rel, true
		}
	}
	return Relationship{}, false
}

// ByType returns all relationships of the given type in declaration order
func (r *Relationships) ByType(relType string) []Relationship {
	var out []Relationship
	for _, rel := range r.Relationship {
		if rel.Type == relType {
			out = append(out, rel)
		}
	}
	return out
}

// Add appends a relationship under a fresh id and returns that id
func (r *Relationships) Add(relType, target string) string {
	id := r.NextID()
	r.Relationship = append(r.Relationship, Relationship{
		ID:     id,
		Type:   relType,
		Target: target,
	})
	return id
}

// Put appends a relationship keeping its id. It fails when the id is taken.
func (r *Relationships) Put(rel Relationship) error {
	if _, exists := r.Get(rel.ID); exists {
		return fmt.Errorf("%w: duplicate relationship id %s", ErrInvariant, rel.ID)
	}
	r.Relationship = append(r.Relationship, rel)
	return nil
}

// Remove deletes the relationship with the given id
func (r *Relationships) Remove(id string) bool {
	for i, rel := range r.Relationship {
		if rel.ID == id {
			r.Relationship = append(r.Relationship[:i], r.Relationship[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveIf deletes every relationship matched by fn and returns the removed ones
func (r *Relationships) RemoveIf(fn func(Relationship) bool) []Relationship {
	var removed []Relationship
	kept := r.Relationship[:0]
	for _, rel := range r.Relationship {
		if fn(rel) {
			removed = append(removed, rel)
			continue
		}
		kept = append(kept, rel)
	}
	r.Relationship = kept
	return removed
}

// NextID generates the next available relationship ID
func (r *Relationships) NextID() string {
	maxID := 0
	for _, rel := range r.Relationship {
		if n, err := RelationshipNumber(rel.ID); err == nil && n > maxID {
			maxID = n
		}
	}
	return fmt.Sprintf("rId%d", maxID+1)
}

// Len returns the number of relationships
func (r *Relationships) Len() int {
	return len(r.Relationship)
}

// Clone returns a deep copy
func (r *Relationships) Clone() *Relationships {
	out := &Relationships{
		Namespace:    r.Namespace,
		Relationship: make([]Relationship, len(r.Relationship)),
		loaded:       r.loaded,
	}
	copy(out.Relationship, r.Relationship)
	return out
}

// RelationshipNumber extracts the numeric ID from a relationship ID like "rId6"
func RelationshipNumber(rID string) (int, error) {
	if !strings.HasPrefix(rID, "rId") {
		return 0, fmt.Errorf("invalid relationship ID format: %s", rID)
	}
	n, err := strconv.Atoi(strings.TrimPrefix(rID, "rId"))
	if err != nil {
		return 0, fmt.Errorf("invalid relationship ID number: %s", rID)
	}
	return n, nil
}
