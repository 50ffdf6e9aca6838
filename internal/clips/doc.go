// Package clips cuts review material for detected differences: padded clips
// around each divergence in both editions and still frames at each range's
// start and end. Outputs are named by difference number, time span and
// edition label; files that already exist are left alone so an interrupted
// extraction can be resumed.
package clips
