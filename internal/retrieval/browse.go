package retrieval

import (
	"fmt"
	"sort"
	"strings"

	"github.com/conceptrag/conceptrag/internal/concepts"
	"github.com/conceptrag/conceptrag/internal/store"
)

// DefaultCategoryBrowseLimit bounds documents returned per category browse
// when the caller doesn't specify one.
const DefaultCategoryBrowseLimit = 50

// ListCategories returns every category whose name contains the optional
// substring, sorted per spec.md §4.8's sort key (name, popularity, or
// documentCount — popularity and documentCount both rank by document
// count, since nothing else in the store distinguishes "popularity" from
// raw document membership).
func (e *Engine) ListCategories(in ListCategoriesInput) ([]store.Category, error) {
	cats, err := e.store.ListCategories(in.Substring)
	if err != nil {
		return nil, fmt.Errorf("retrieval: listing categories: %w", err)
	}

	switch strings.ToLower(in.SortBy) {
	case "popularity", "documentcount":
		sort.Slice(cats, func(i, j int) bool {
			if cats[i].DocumentCount != cats[j].DocumentCount {
				return cats[i].DocumentCount > cats[j].DocumentCount
			}
			return cats[i].Name < cats[j].Name
		})
	default:
		sort.Slice(cats, func(i, j int) bool { return cats[i].Name < cats[j].Name })
	}
	return cats, nil
}

// CategoryBrowse lists documents belonging to a category, optionally
// including documents from every descendant category (spec.md §4.8).
func (e *Engine) CategoryBrowse(in CategoryBrowseInput) ([]store.Document, error) {
	limit := clampLimit(in.Limit, DefaultCategoryBrowseLimit, 500)

	names := []string{in.Name}
	if in.IncludeChildren {
		all, err := e.store.ListCategories("")
		if err != nil {
			return nil, fmt.Errorf("retrieval: listing categories for descendant lookup: %w", err)
		}
		root := findCategoryByName(all, in.Name)
		if root != nil {
			names = append(names, descendantNames(all, root.ID)...)
		}
	}

	seen := make(map[uint32]bool)
	var out []store.Document
	for _, name := range names {
		docs, err := e.store.DocumentsByCategoryName(name)
		if err != nil {
			return nil, fmt.Errorf("retrieval: browsing category %q: %w", name, err)
		}
		for _, d := range docs {
			if seen[d.ID] {
				continue
			}
			seen[d.ID] = true
			out = append(out, d)
			if len(out) >= limit {
				return out, nil
			}
		}
	}
	return out, nil
}

func findCategoryByName(cats []store.Category, name string) *store.Category {
	lower := strings.ToLower(name)
	for i := range cats {
		if strings.ToLower(cats[i].Name) == lower {
			return &cats[i]
		}
	}
	return nil
}

// descendantNames walks the category tree breadth-first from parentID,
// guarding against a cyclic parent_category_id chain with a visited set so
// a bad write can't loop this forever.
func descendantNames(cats []store.Category, parentID uint32) []string {
	visited := map[uint32]bool{parentID: true}
	var names []string
	frontier := []uint32{parentID}
	for len(frontier) > 0 {
		var next []uint32
		for _, id := range frontier {
			for _, c := range cats {
				if c.ParentCategoryID != id || visited[c.ID] {
					continue
				}
				visited[c.ID] = true
				names = append(names, c.Name)
				next = append(next, c.ID)
			}
		}
		frontier = next
	}
	return names
}

// ConceptsInCategory returns every distinct concept attached to a
// document that belongs to the given category (spec.md §4.8).
func (e *Engine) ConceptsInCategory(categoryName string) ([]store.Concept, error) {
	docs, err := e.store.DocumentsByCategoryName(categoryName)
	if err != nil {
		return nil, fmt.Errorf("retrieval: listing documents for category %q: %w", categoryName, err)
	}

	seen := make(map[uint32]bool)
	var out []store.Concept
	for _, doc := range docs {
		for _, id := range doc.ConceptIDs {
			if seen[id] {
				continue
			}
			seen[id] = true
			c, err := e.store.GetConcept(id)
			if err != nil {
				continue
			}
			out = append(out, *c)
		}
	}
	return out, nil
}

// ConceptToSourcesUnion merges every listed concept's source documents
// into a single list, tagging each document with which concept indices
// matched it and ranking by how many concepts matched (spec.md §4.8).
func (e *Engine) ConceptToSourcesUnion(conceptNames []string) ([]UnionSource, error) {
	byDoc := make(map[uint32]*UnionSource)
	for i, name := range conceptNames {
		c, err := e.store.FindConceptByName(concepts.Normalize(name))
		if err != nil {
			continue
		}
		for _, docID := range c.CatalogIDs {
			entry, ok := byDoc[docID]
			if !ok {
				doc, err := e.store.GetDocument(docID)
				if err != nil {
					continue
				}
				entry = &UnionSource{Document: *doc}
				byDoc[docID] = entry
			}
			entry.MatchedIndices = append(entry.MatchedIndices, i)
		}
	}

	out := make([]UnionSource, 0, len(byDoc))
	for _, v := range byDoc {
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i].MatchedIndices) != len(out[j].MatchedIndices) {
			return len(out[i].MatchedIndices) > len(out[j].MatchedIndices)
		}
		return out[i].Document.ID < out[j].Document.ID
	})
	return out, nil
}

// ConceptToSourcesPerConcept returns one source list per input concept, in
// input order, with unmatched concepts yielding an empty (not omitted)
// list (spec.md §4.8).
func (e *Engine) ConceptToSourcesPerConcept(conceptNames []string) ([][]store.Document, error) {
	out := make([][]store.Document, len(conceptNames))
	for i, name := range conceptNames {
		c, err := e.store.FindConceptByName(concepts.Normalize(name))
		if err != nil {
			out[i] = []store.Document{}
			continue
		}
		docs := make([]store.Document, 0, len(c.CatalogIDs))
		for _, docID := range c.CatalogIDs {
			if doc, err := e.store.GetDocument(docID); err == nil {
				docs = append(docs, *doc)
			}
		}
		out[i] = docs
	}
	return out, nil
}
