// Package viz provides the live terminal view of a running deck or
// oscillator.
//
// The view uses Bubble Tea and shows one deflection bar per DOF, a
// history chart of the selected DOF and a stats panel.
//
// # Key Bindings
//
//	Space - Pause/Resume
//	R     - Reset to the initial state
//	Tab   - Select the charted DOF
//	+/-   - Steps per frame
//	T     - Cycle colour themes
//	?     - Show help
//	Q     - Quit
package viz
