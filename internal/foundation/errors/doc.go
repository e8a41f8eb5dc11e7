// Package errors provides classified error primitives used across epubbuild.
//
// Every stage of the packaging pipeline reports failures as a ClassifiedError so
// the CLI can choose an exit code and the reporter can decide how loud to be:
//   - ErrorCategory: which part of the pipeline failed (provision, packager, artifact, ...)
//   - ErrorSeverity: impact level (fatal, error, warning, info)
//   - ErrorBuilder: fluent API for creating classified errors
//   - CLIErrorAdapter: exit code mapping and console formatting
//
// Example usage:
//
//	err := errors.WrapError(runErr, errors.CategoryPackager, "packaging tool failed").
//		WithContext("tool", "pyinstaller").
//		WithContext("exit_code", 1).
//		Build()
package errors
