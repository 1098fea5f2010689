package macro

// Known input channels for the streamed controller model. These match
// the vocabulary used by persisted frame macros and by the neutral
// reset vector the streamer sends on every exit path.
var (
	// Axes are continuous channels, clamped to [-1, 1].
	Axes = []string{"throttle", "steer", "pitch", "yaw", "roll"}

	// Buttons are discrete on/off channels.
	Buttons = []string{"jump", "boost", "handbrake", "airRollL", "airRollR"}
)

// Axis value bounds.
const (
	AxisMin = -1.0
	AxisMax = 1.0
)

// InputVector maps axis names to float values and button names to
// booleans. Keys outside the known channel sets are carried through
// untouched; the remote consumer decides what to do with them.
//
// The map-of-any shape mirrors the persisted JSON representation:
// numbers decode as float64, booleans as bool.
type InputVector map[string]any

// Neutral returns a vector with every known axis at 0.0 and every known
// button false. This is the reset state the streamer guarantees as the
// final transmission of any run.
func Neutral() InputVector {
	v := make(InputVector, len(Axes)+len(Buttons))
	for _, a := range Axes {
		v[a] = 0.0
	}
	for _, b := range Buttons {
		v[b] = false
	}
	return v
}

// ClampAxis bounds an axis value to [AxisMin, AxisMax].
func ClampAxis(x float64) float64 {
	if x < AxisMin {
		return AxisMin
	}
	if x > AxisMax {
		return AxisMax
	}
	return x
}

// Axis returns the named axis value and whether it is present as a
// number. JSON-decoded integers are accepted alongside floats.
func (v InputVector) Axis(name string) (float64, bool) {
	raw, ok := v[name]
	if !ok {
		return 0, false
	}
	switch x := raw.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	default:
		return 0, false
	}
}

// Button returns the named button value and whether it is present as a
// boolean.
func (v InputVector) Button(name string) (bool, bool) {
	raw, ok := v[name]
	if !ok {
		return false, false
	}
	b, ok := raw.(bool)
	return b, ok
}

// Normalize returns a copy with every known axis clamped to
// [AxisMin, AxisMax]. Unknown keys and buttons pass through unchanged.
func (v InputVector) Normalize() InputVector {
	out := v.Clone()
	for _, a := range Axes {
		if x, ok := out.Axis(a); ok {
			out[a] = ClampAxis(x)
		}
	}
	return out
}

// Merge returns a copy of v with every entry of delta applied on top.
// This is the "accumulate" frame mode: channels absent from delta keep
// their previous value.
func (v InputVector) Merge(delta InputVector) InputVector {
	out := v.Clone()
	if out == nil {
		out = make(InputVector, len(delta))
	}
	for k, val := range delta {
		out[k] = val
	}
	return out
}

// Clone returns an independent copy of the vector.
func (v InputVector) Clone() InputVector {
	if v == nil {
		return nil
	}
	out := make(InputVector, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// DefaultFrameDurationMS is the frame duration used when a persisted
// frame omits or mangles dt_ms.
const DefaultFrameDurationMS = 80

// MinFrameDurationMS is the smallest legal frame duration.
const MinFrameDurationMS = 1

// NeutralFrame returns a frame step with the default duration and a
// fully-neutral input vector, the seed for new frame macros.
func NeutralFrame() Step {
	return Step{
		Kind:       StepFrame,
		DurationMS: DefaultFrameDurationMS,
		Inputs:     Neutral(),
	}
}
