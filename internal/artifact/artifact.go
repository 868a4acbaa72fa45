// Package artifact reads and writes the persisted capture artifact formats.
//
// The on-disk JSON shapes are a de facto contract shared with previously
// captured datasets and must round-trip unchanged:
//
//	layout capture: {info:{keypadUuid,tw,th,iw,ih}, items:[{id, buttons:[...]}]}
//	diff run:       {virtual:..., hardware:..., analysis:...}
//
// This package is the adapter boundary between raw captured bytes and the
// immutable in-memory artifacts the engines consume. Parse failures surface
// as capture.MalformedCaptureError, never as silently empty artifacts.
package artifact

import (
	"encoding/json"
	"fmt"
	"os"

	"padscope/internal/capture"
	"padscope/internal/subdiff"
)

// layoutFile is the wire shape of a persisted layout capture.
type layoutFile struct {
	Info  layoutInfo   `json:"info"`
	Items []layoutItem `json:"items"`
}

type layoutInfo struct {
	KeypadUUID string `json:"keypadUuid"`
	TW         int    `json:"tw"`
	TH         int    `json:"th"`
	IW         int    `json:"iw"`
	IH         int    `json:"ih"`
}

type layoutItem struct {
	ID      string       `json:"id"`
	Buttons []buttonWire `json:"buttons"`
}

type buttonWire struct {
	Token     string      `json:"token"`
	Mask      string      `json:"mask"`
	RenderBox capture.Box `json:"render_box"`
	SourceBox capture.Box `json:"source_box"`
}

// ParseLayout decodes a persisted layout capture into the immutable model.
func ParseLayout(data []byte) (*capture.LayoutCapture, error) {
	var file layoutFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, &capture.MalformedCaptureError{Artifact: "layout", Reason: "decode json", Err: err}
	}

	dims := capture.ImageDimensions{
		TotalWidth:    file.Info.TW,
		TotalHeight:   file.Info.TH,
		VisibleWidth:  file.Info.IW,
		VisibleHeight: file.Info.IH,
	}

	var buttons []capture.ButtonEntry
	for _, item := range file.Items {
		for _, b := range item.Buttons {
			buttons = append(buttons, capture.ButtonEntry{
				LayoutID:  item.ID,
				Token:     b.Token,
				Mask:      capture.MaskClass(b.Mask),
				RenderBox: b.RenderBox,
				SourceBox: b.SourceBox,
			})
		}
	}

	return capture.NewLayoutCapture(file.Info.KeypadUUID, dims, buttons)
}

// EncodeLayout serializes a layout capture back to its persisted shape.
// Buttons are grouped into items by page, preserving first-appearance
// order, so parse-encode-parse is stable.
func EncodeLayout(layout *capture.LayoutCapture) ([]byte, error) {
	dims := layout.Dimensions()
	file := layoutFile{
		Info: layoutInfo{
			KeypadUUID: layout.SessionID(),
			TW:         dims.TotalWidth,
			TH:         dims.TotalHeight,
			IW:         dims.VisibleWidth,
			IH:         dims.VisibleHeight,
		},
	}

	itemIndex := make(map[string]int)
	for _, b := range layout.Buttons() {
		i, ok := itemIndex[b.LayoutID]
		if !ok {
			i = len(file.Items)
			itemIndex[b.LayoutID] = i
			file.Items = append(file.Items, layoutItem{ID: b.LayoutID})
		}
		file.Items[i].Buttons = append(file.Items[i].Buttons, buttonWire{
			Token:     b.Token,
			Mask:      string(b.Mask),
			RenderBox: b.RenderBox,
			SourceBox: b.SourceBox,
		})
	}

	return json.MarshalIndent(file, "", "  ")
}

// LoadLayout reads and parses a persisted layout capture file.
func LoadLayout(path string) (*capture.LayoutCapture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read layout capture: %w", err)
	}
	return ParseLayout(data)
}

// DiffRun is the persisted record of one controlled diff experiment: the
// two captures and the analysis they produced.
type DiffRun struct {
	Virtual  *capture.SubmissionCapture `json:"virtual"`
	Hardware *capture.SubmissionCapture `json:"hardware"`
	Analysis *subdiff.DiffReport        `json:"analysis,omitempty"`
}

// ParseDiffRun decodes a persisted diff run.
func ParseDiffRun(data []byte) (*DiffRun, error) {
	var run DiffRun
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, &capture.MalformedCaptureError{Artifact: "diff-run", Reason: "decode json", Err: err}
	}
	if run.Virtual == nil || run.Hardware == nil {
		return nil, &capture.MalformedCaptureError{Artifact: "diff-run", Reason: "missing capture branch"}
	}
	return &run, nil
}

// EncodeDiffRun serializes a diff run to its persisted shape.
func EncodeDiffRun(run *DiffRun) ([]byte, error) {
	return json.MarshalIndent(run, "", "  ")
}

// LoadDiffRun reads and parses a persisted diff run file.
func LoadDiffRun(path string) (*DiffRun, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read diff run: %w", err)
	}
	return ParseDiffRun(data)
}

// SaveDiffRun writes a diff run to path.
func SaveDiffRun(path string, run *DiffRun) error {
	data, err := EncodeDiffRun(run)
	if err != nil {
		return fmt.Errorf("encode diff run: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write diff run: %w", err)
	}
	return nil
}
