// Package reconcile converts a keypad layout capture plus a reference sprite
// image's dimensions into a token-to-character-class candidate mapping using
// coordinate geometry.
//
// The engine narrows class, not exact character: the protocol only ever
// reveals a class hint, and exact character identification stays a manual
// step over the rendered image. Geometry problems are recorded per button
// and never abort the whole reconciliation.
package reconcile

import (
	"fmt"
	"sort"

	"padscope/internal/capture"
)

// Finding kinds recorded in a mapping report.
const (
	FindingGeometryOutOfBounds = "geometry_out_of_bounds"
	FindingTokenClassConflict  = "token_class_conflict"
)

// OffsetPolicyEqualVertical names the page-offset assumption the engine
// applies: sprite pages are stacked vertically in capture order, equally
// spaced by the number of distinct pages observed. The protocol does not
// transmit the offset; this is an inferred convention from observed image
// proportions, so every report states it explicitly.
const OffsetPolicyEqualVertical = "equal-vertical-partition"

// AnnotatedRegion locates one button inside the full sprite image, for
// human verification against the rendered capture.
type AnnotatedRegion struct {
	Token             string            `json:"token"`
	Mask              capture.MaskClass `json:"mask"`
	AbsoluteSourceBox capture.Box       `json:"absolute_source_box"`
	LayoutID          string            `json:"layout_id"`
}

// OutOfBoundsButton records a button whose geometry exceeds the image
// bounds. The button is excluded from the mapping but the capture as a
// whole is still analyzed.
type OutOfBoundsButton struct {
	Kind     string      `json:"kind"` // always FindingGeometryOutOfBounds
	Token    string      `json:"token"`
	LayoutID string      `json:"layout_id"`
	Box      capture.Box `json:"box"`
	// Which names the offending box: "source" or "render".
	Which string `json:"which"`
}

// ClassConflict records a token observed under two different mask classes.
// Conflicts are surfaced with both values and the token is never silently
// assigned either one; a conflict indicates session-scoped token reuse or a
// modeling error, both worth a human look.
type ClassConflict struct {
	Kind    string              `json:"kind"` // always FindingTokenClassConflict
	Token   string              `json:"token"`
	Classes []capture.MaskClass `json:"classes"`
}

// PageOffset records the vertical offset assigned to one layout page.
type PageOffset struct {
	LayoutID string `json:"layout_id"`
	OffsetY  int    `json:"offset_y"`
}

// MappingReport is the reconciliation output for one session.
type MappingReport struct {
	SessionID string `json:"session_id"`

	// OffsetPolicy states the page-offset assumption the mapping rests on.
	OffsetPolicy string       `json:"offset_policy"`
	PageHeight   int          `json:"page_height"`
	PageOffsets  []PageOffset `json:"page_offsets"`

	// Regions are the annotated sprite regions for surviving buttons, in
	// capture order.
	Regions []AnnotatedRegion `json:"regions"`

	// Classes is the token-to-class candidate mapping. Tokens with
	// conflicting classes are excluded and appear in Conflicts instead.
	Classes map[string]capture.MaskClass `json:"classes"`

	OutOfBounds []OutOfBoundsButton `json:"out_of_bounds,omitempty"`
	Conflicts   []ClassConflict     `json:"conflicts,omitempty"`
}

// Reconcile maps every button of a layout capture into the sprite image and
// produces the token-to-class candidate mapping.
//
// sprite is the reference image's dimensions as decoded by the image
// provider; it may differ from the dimensions transmitted in the layout,
// and the decoded values win because they describe the actual artifact.
func Reconcile(layout *capture.LayoutCapture, sprite capture.ImageDimensions) (*MappingReport, error) {
	return ReconcileWithPartition(layout, sprite, 0)
}

// ReconcileWithPartition is Reconcile with an explicit sprite partition
// count. partitions <= 0 partitions by the number of distinct pages the
// capture observed; a positive value overrides it, for sprites known to
// carry pages the capture did not exercise.
func ReconcileWithPartition(layout *capture.LayoutCapture, sprite capture.ImageDimensions, partitions int) (*MappingReport, error) {
	if layout == nil {
		return nil, fmt.Errorf("reconcile: nil layout capture")
	}
	if !sprite.Valid() {
		return nil, fmt.Errorf("reconcile: invalid sprite dimensions %+v", sprite)
	}

	pages := layout.PageIDs()
	if partitions <= 0 {
		partitions = len(pages)
	}
	if partitions < len(pages) {
		return nil, fmt.Errorf("reconcile: %d partitions cannot hold %d observed pages", partitions, len(pages))
	}
	pageHeight := sprite.TotalHeight / partitions

	offsets := make([]PageOffset, len(pages))
	offsetByPage := make(map[string]int, len(pages))
	for i, id := range pages {
		offsets[i] = PageOffset{LayoutID: id, OffsetY: i * pageHeight}
		offsetByPage[id] = i * pageHeight
	}

	report := &MappingReport{
		SessionID:    layout.SessionID(),
		OffsetPolicy: OffsetPolicyEqualVertical,
		PageHeight:   pageHeight,
		PageOffsets:  offsets,
		Classes:      make(map[string]capture.MaskClass),
	}

	classes := make(map[string][]capture.MaskClass)
	for _, b := range layout.Buttons() {
		abs := b.SourceBox.Translated(0, offsetByPage[b.LayoutID])

		if !abs.Within(sprite.TotalWidth, sprite.TotalHeight) {
			report.OutOfBounds = append(report.OutOfBounds, OutOfBoundsButton{
				Kind:     FindingGeometryOutOfBounds,
				Token:    b.Token,
				LayoutID: b.LayoutID,
				Box:      abs,
				Which:    "source",
			})
			continue
		}
		if !b.RenderBox.Within(sprite.VisibleWidth, sprite.VisibleHeight) {
			report.OutOfBounds = append(report.OutOfBounds, OutOfBoundsButton{
				Kind:     FindingGeometryOutOfBounds,
				Token:    b.Token,
				LayoutID: b.LayoutID,
				Box:      b.RenderBox,
				Which:    "render",
			})
			continue
		}

		report.Regions = append(report.Regions, AnnotatedRegion{
			Token:             b.Token,
			Mask:              b.Mask,
			AbsoluteSourceBox: abs,
			LayoutID:          b.LayoutID,
		})
		classes[b.Token] = appendClass(classes[b.Token], b.Mask)
	}

	assignClasses(report, classes)
	return report, nil
}

// MergeReports combines mapping reports from multiple layout captures of
// the same session. Tokens whose class assignment is inconsistent across
// captures are flagged as conflicts; no mapping entry silently picks either
// value.
func MergeReports(reports ...*MappingReport) (*MappingReport, error) {
	if len(reports) == 0 {
		return nil, fmt.Errorf("reconcile: no reports to merge")
	}

	merged := &MappingReport{
		SessionID:    reports[0].SessionID,
		OffsetPolicy: reports[0].OffsetPolicy,
		PageHeight:   reports[0].PageHeight,
		PageOffsets:  reports[0].PageOffsets,
		Classes:      make(map[string]capture.MaskClass),
	}

	classes := make(map[string][]capture.MaskClass)
	for _, r := range reports {
		if r.SessionID != merged.SessionID {
			return nil, fmt.Errorf("reconcile: session mismatch %q vs %q", r.SessionID, merged.SessionID)
		}
		merged.Regions = append(merged.Regions, r.Regions...)
		merged.OutOfBounds = append(merged.OutOfBounds, r.OutOfBounds...)
		for _, c := range r.Conflicts {
			for _, mask := range c.Classes {
				classes[c.Token] = appendClass(classes[c.Token], mask)
			}
		}
		for token, mask := range r.Classes {
			classes[token] = appendClass(classes[token], mask)
		}
	}

	assignClasses(merged, classes)
	return merged, nil
}

// assignClasses splits observed token classes into the candidate mapping
// and the conflict list. Conflicts are ordered by token for determinism.
func assignClasses(report *MappingReport, classes map[string][]capture.MaskClass) {
	var conflicted []string
	for token, seen := range classes {
		if len(seen) == 1 {
			report.Classes[token] = seen[0]
		} else {
			conflicted = append(conflicted, token)
		}
	}
	sort.Strings(conflicted)
	for _, token := range conflicted {
		report.Conflicts = append(report.Conflicts, ClassConflict{
			Kind:    FindingTokenClassConflict,
			Token:   token,
			Classes: classes[token],
		})
	}
}

// appendClass adds a mask class to the observed set if not already present.
func appendClass(seen []capture.MaskClass, mask capture.MaskClass) []capture.MaskClass {
	for _, m := range seen {
		if m == mask {
			return seen
		}
	}
	return append(seen, mask)
}
