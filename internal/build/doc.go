// Package build runs the packaging pipeline: provision dependencies, invoke
// the packager, locate the artifact and report the outcome.
//
// Stages run strictly in order and never feed back into each other. Only an
// operator interrupt stops the sequence early; every other stage failure is
// recorded on the result and the pipeline carries on, leaving the located
// artifact to decide the final status.
package build
