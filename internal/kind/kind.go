// Package kind describes the three application categories the back office
// handles. Each kind carries its route slug and the fixed set of document
// slots an application of that kind may have attached.
package kind

// Spec is the schema descriptor for one application kind.
type Spec struct {
	// Name is the kind tag persisted on application rows.
	Name string
	// Slug is the route segment, e.g. /api/<slug>/:id/status.
	Slug string
	// Slots are the legal document-type identifiers for this kind.
	Slots []string
}

var (
	NewInstallation = Spec{
		Name:  "new_installation",
		Slug:  "applications",
		Slots: []string{"old_bill", "proxy", "dask", "ownership"},
	}
	Evacuation = Spec{
		Name:  "evacuation",
		Slug:  "evacuation-applications",
		Slots: []string{"nufus_cuzdani", "mulkiyet_belgesi"},
	}
	NewConnection = Spec{
		Name: "new_connection",
		Slug: "connection-applications",
		Slots: []string{
			"id_document", "address_document", "ownership_document",
			"deed", "electrical_project", "building_permit",
			"permit_document", "law_6292", "law_3194",
		},
	}
)

// All lists every kind, in route-registration order.
var All = []Spec{NewInstallation, Evacuation, NewConnection}

// AllowsSlot reports whether name is a legal document slot for this kind.
func (s Spec) AllowsSlot(name string) bool {
	for _, slot := range s.Slots {
		if slot == name {
			return true
		}
	}
	return false
}
