// Package extract turns the tokens of one leaderboard screenshot into (nickname, fan count)
// entries.
//
// The stages run leaves first:
//   - anchors: one fan-count value per leaderboard row, deduplicated by vertical band
//   - clusters: non-numeric tokens left of an anchor joined into a raw name
//   - normalize: noise labels and OCR-confusable characters stripped from the name
//
// Roster correction of the normalized name lives in package fuzzy; this package only
// calls it through the Corrector interface.
package extract
