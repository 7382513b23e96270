package layout

import "fmt"

// CenterLines are optional full-width/height reference lines. Each axis is
// independently present or absent; nil means not shown.
type CenterLines struct {
	HorizontalYMm *float64 `json:"horizontal"`
	VerticalXMm   *float64 `json:"vertical"`
}

// State is the complete layout: a global orientation, optional centre lines
// and the ordered element sequence. Order determines paint order (later
// elements draw on top).
//
// State values are replaced atomically by the engine; nothing mutates a
// State in place once it has been published.
type State struct {
	ObjectOrientationDeg float64     `json:"object_orientation"`
	CenterLines          CenterLines `json:"center_lines"`
	Elements             []Element   `json:"elements"`
}

// Delta is a partial layout update. Nil fields leave the corresponding
// State field untouched; non-nil fields replace it wholesale. There is no
// merging of concurrent partial updates: the last writer for a field wins,
// applied as one atomic state transition.
type Delta struct {
	ObjectOrientationDeg *float64     `json:"object_orientation,omitempty"`
	CenterLines          *CenterLines `json:"center_lines,omitempty"`
	Elements             *[]Element   `json:"elements,omitempty"`
}

// Apply returns a new State with the delta applied. Elements are validated
// and assigned stable ids ("<type>_<index>") before the transition becomes
// visible; an invalid element rejects the whole delta.
func (s State) Apply(d Delta) (State, error) {
	next := s.Clone()

	if d.ObjectOrientationDeg != nil {
		next.ObjectOrientationDeg = *d.ObjectOrientationDeg
	}
	if d.CenterLines != nil {
		cl := *d.CenterLines
		next.CenterLines = cl.clone()
	}
	if d.Elements != nil {
		elems := make([]Element, len(*d.Elements))
		for i, e := range *d.Elements {
			if err := e.Validate(); err != nil {
				return State{}, fmt.Errorf("element %d: %w", i, err)
			}
			if e.ID == "" {
				e.ID = fmt.Sprintf("%s_%d", e.Kind, i)
			}
			elems[i] = e
		}
		next.Elements = elems
	}

	return next, nil
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	out := State{
		ObjectOrientationDeg: s.ObjectOrientationDeg,
		CenterLines:          s.CenterLines.clone(),
	}
	if s.Elements != nil {
		out.Elements = make([]Element, len(s.Elements))
		copy(out.Elements, s.Elements)
	}
	return out
}

func (cl CenterLines) clone() CenterLines {
	out := CenterLines{}
	if cl.HorizontalYMm != nil {
		v := *cl.HorizontalYMm
		out.HorizontalYMm = &v
	}
	if cl.VerticalXMm != nil {
		v := *cl.VerticalXMm
		out.VerticalXMm = &v
	}
	return out
}
