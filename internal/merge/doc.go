// Package merge turns overlapping chunk transcriptions into continuous
// per-track transcripts and combines the device and microphone tracks into a
// single conversation document.
//
// Adjacent transcription chunks share a window of audio, so the text near
// each boundary appears twice. The resolver aligns the duplicated words by
// sliding the two texts against each other, scoring word matches at each
// offset, and splicing the pair at the midpoint of the best alignment.
package merge
