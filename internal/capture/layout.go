package capture

// LayoutCapture is one captured keypad layout response for a session.
//
// Buttons keep their capture order: page offsets in the sprite are inferred
// from the order in which distinct layout pages first appear, so reordering
// would change the reconciliation result.
type LayoutCapture struct {
	sessionID  string
	dimensions ImageDimensions
	buttons    []ButtonEntry
}

// NewLayoutCapture validates and freezes a layout capture.
//
// Validation covers artifact shape only: non-empty session, valid
// dimensions, well-formed entries, fixed-length hex tokens, and token
// uniqueness per layout page. Geometry bounds and cross-class token
// consistency are analysis findings, not shape errors, and are left to the
// reconciliation engine so that one bad button does not discard the capture.
func NewLayoutCapture(sessionID string, dims ImageDimensions, buttons []ButtonEntry) (*LayoutCapture, error) {
	if sessionID == "" {
		return nil, malformed("layout", "missing session id")
	}
	if !dims.Valid() {
		return nil, malformed("layout", "invalid image dimensions %+v", dims)
	}
	if len(buttons) == 0 {
		return nil, malformed("layout", "no buttons")
	}

	tokenLen := 0
	seen := make(map[string]map[string]struct{}) // layoutID -> token set
	for i, b := range buttons {
		if b.LayoutID == "" {
			return nil, malformed("layout", "button %d: missing layout id", i)
		}
		if !b.Mask.Valid() {
			return nil, malformed("layout", "button %d: invalid mask class %q", i, string(b.Mask))
		}
		if !isHex(b.Token) {
			return nil, malformed("layout", "button %d: token %q is not hexadecimal", i, b.Token)
		}
		if tokenLen == 0 {
			tokenLen = len(b.Token)
		} else if len(b.Token) != tokenLen {
			return nil, malformed("layout", "button %d: token length %d differs from %d", i, len(b.Token), tokenLen)
		}
		page := seen[b.LayoutID]
		if page == nil {
			page = make(map[string]struct{})
			seen[b.LayoutID] = page
		}
		if _, dup := page[b.Token]; dup {
			return nil, malformed("layout", "button %d: duplicate token %q on page %q", i, b.Token, b.LayoutID)
		}
		page[b.Token] = struct{}{}
	}

	frozen := make([]ButtonEntry, len(buttons))
	copy(frozen, buttons)

	return &LayoutCapture{
		sessionID:  sessionID,
		dimensions: dims,
		buttons:    frozen,
	}, nil
}

// SessionID returns the session identifier the capture belongs to.
func (c *LayoutCapture) SessionID() string { return c.sessionID }

// Dimensions returns the reference image dimensions captured alongside the
// layout.
func (c *LayoutCapture) Dimensions() ImageDimensions { return c.dimensions }

// Buttons returns the button entries in capture order. The returned slice
// is a copy; the capture itself stays frozen.
func (c *LayoutCapture) Buttons() []ButtonEntry {
	out := make([]ButtonEntry, len(c.buttons))
	copy(out, c.buttons)
	return out
}

// PageIDs returns the distinct layout page identifiers in order of first
// appearance.
func (c *LayoutCapture) PageIDs() []string {
	var ids []string
	seen := make(map[string]struct{})
	for _, b := range c.buttons {
		if _, ok := seen[b.LayoutID]; ok {
			continue
		}
		seen[b.LayoutID] = struct{}{}
		ids = append(ids, b.LayoutID)
	}
	return ids
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
