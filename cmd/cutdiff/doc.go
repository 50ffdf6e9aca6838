// Command cutdiff compares releases of the same film frame by frame.
//
// `cutdiff hash` fingerprints every frame of a video into the local frame
// store; `cutdiff compare` aligns two hashed editions and reports where they
// diverge; `cutdiff extract` cuts clips and stills around each divergence for
// review. Supporting commands manage chapters, stored editions, portable
// fingerprint archives and configuration; `cutdiff doctor` checks that the
// store, directories and ffmpeg tools are ready.
package main
