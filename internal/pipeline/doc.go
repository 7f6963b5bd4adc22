// Package pipeline runs conversions: [Discover] lists the files a handler
// accepts, [ConvertOne] performs the decode, encode, commit and trash steps
// for one file, and [Run] drives a folder sequentially and reports a summary.
//
// A failure in one file is logged and recorded in its [Result]; it never
// stops the batch. Sources are only moved to the trash after the output has
// been fully written and renamed into place.
package pipeline
