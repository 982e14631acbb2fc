// Package adjust holds the current value of each visual adjustment applied to
// the image being edited.
//
// An adjustment set is a fixed-shape record of nine parameters:
//
//	brightness  [0,4]    default 1   step 0.01
//	contrast    [0,4]    default 1   step 0.01
//	grayscale   [0,1]    default 0   step 0.01
//	invert      [0,1]    default 0   step 0.01
//	opacity     [0,1]    default 1   step 0.01
//	saturate    [0,4]    default 1   step 0.01
//	sepia       [0,1]    default 0   step 0.01
//	blur        [0,20]   default 0   step 0.1   (pixels)
//	hueRotate   [0,360]  default 0   step 1     (degrees)
//
// # Coercion
//
// Values are never rejected. Every write goes through the same policy:
//   - NaN becomes the parameter default
//   - the value is clamped into the parameter range
//   - the value is snapped to the nearest step, then clamped again
//
// # Immutability
//
// Set is a plain value type. Every edit returns a new Set, so a renderer
// holding a Set never observes a partially applied change.
package adjust
