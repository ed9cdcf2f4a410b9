// Package tui implements the live "watch" screen of mdns-discover.
//
// The screen is a Bubble Tea program fed by a running discovery. Each stream
// item is folded into a de-duplicated device list (bubbles/list) and a short
// feed of recent events. Keys:
//
//	r      send a query now (still subject to the query interval)
//	e      show or hide empty responses in the feed
//	enter  toggle the detail pane for the selected device
//	c      forget every device seen so far
//	q      quit
//
// The discovery itself is owned by the caller, which closes it once Run
// returns.
package tui
