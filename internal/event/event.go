package event

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Type classifies what an event does to a population.
type Type string

const (
	TypeImmigration Type = "immigration"
	TypeEmigration  Type = "emigration"
	TypeDisaster    Type = "disaster"
	TypeMilestone   Type = "milestone"
)

// Types lists every known event type.
var Types = []Type{TypeImmigration, TypeEmigration, TypeDisaster, TypeMilestone}

// Category groups events for presentation.
type Category string

const (
	CategoryOpportunity Category = "opportunity"
	CategoryDisaster    Category = "disaster"
	CategoryConflict    Category = "conflict"
	CategoryEpidemic    Category = "epidemic"
	CategoryMilestone   Category = "milestone"
)

// Categories lists every known category.
var Categories = []Category{CategoryOpportunity, CategoryDisaster, CategoryConflict, CategoryEpidemic, CategoryMilestone}

// Partition is the grouping key of an event: a territory type name or
// the fixed milestone group.
type Partition string

// Milestone is the partition stored in the milestone document.
const Milestone Partition = "milestone"

// Territories lists the known territory partitions.
var Territories = []Partition{
	"rural", "urban", "border", "coastal", "caves", "underground",
	"mountains", "desert", "arctic", "orbital", "space_station",
}

// IsMilestone reports whether p selects the milestone document.
func (p Partition) IsMilestone() bool {
	return p == Milestone
}

// Known reports whether p is a territory type or the milestone group.
func (p Partition) Known() bool {
	if p.IsMilestone() {
		return true
	}
	for _, t := range Territories {
		if t == p {
			return true
		}
	}
	return false
}

func (p Partition) String() string {
	return string(p)
}

// Event is a single catalog record.
//
// TerritoryType is never persisted; it is reconstructed from the
// partition key when documents are read.
type Event struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Type             Type     `json:"type"`
	TerritoryType    string   `json:"territoryType,omitempty"`
	PopulationChange float64  `json:"populationChange"`
	Probability      float64  `json:"probability"`
	Category         Category `json:"category"`
	Threshold        *int64   `json:"threshold,omitempty"`

	// Metadata, written only when stamping is enabled.
	CreatedAt int64  `json:"createdAt,omitempty"`
	UpdatedAt int64  `json:"updatedAt,omitempty"`
	CreatedBy string `json:"createdBy,omitempty"`
}

// Partition returns the partition named by TerritoryType.
func (e Event) Partition() Partition {
	return Partition(e.TerritoryType)
}

// Validate checks the event against the rules for partition p.
func (e Event) Validate(p Partition) Result {
	rec, err := ToRecord(e)
	if err != nil {
		return Result{Violations: []Violation{{Field: "event", Code: CodeInvalidType, Message: err.Error()}}}
	}
	return Validate(rec, p)
}

// Normalize returns a copy of e with the id trimmed and text fields in
// Unicode NFC form, so visually identical titles compare equal.
func Normalize(e Event) Event {
	e.ID = strings.TrimSpace(e.ID)
	e.Title = norm.NFC.String(e.Title)
	e.Description = norm.NFC.String(e.Description)
	return e
}

// Int64 returns a pointer to v. Handy for Threshold literals.
func Int64(v int64) *int64 {
	return &v
}
