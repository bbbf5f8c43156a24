// Package access holds the visibility predicate for documents.
package access

import "knowledge-base-be/internal/entity"

// Visible reports whether the identity may see the document. It is a pure
// function evaluated fresh on every request; visibility decisions are never
// cached, so a department change or a visibility edit takes effect on the
// next query without re-indexing anything.
func Visible(identity entity.Identity, doc *entity.Document) bool {
	if doc == nil {
		return false
	}
	if identity.Admin {
		return true
	}
	if doc.CompanyWide {
		return true
	}
	if identity.Department == "" {
		return false
	}
	for _, dept := range doc.AllowedDepartments {
		if dept == identity.Department {
			return true
		}
	}
	return false
}
