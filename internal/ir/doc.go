// Package ir provides the layout descriptor model for structlayout.
//
// This package contains type definitions and their canonical encodings only.
// All other internal packages import ir; ir imports nothing internal. This
// keeps the descriptor tree the foundational layer with no circular
// dependencies.
//
// Key design constraints:
//   - All sizes and offsets are in bits, unsigned
//   - Field order is declaration order, never sorted
//   - Named aggregates inside a layout are references by name; only
//     anonymous aggregates are inlined
//   - All JSON keys use snake_case
package ir
