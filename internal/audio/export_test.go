package audio

// Export internal functions for testing.
// This file is only compiled during tests (suffix _test.go).

// ParseDurationFromFFmpegOutput exports parseDurationFromFFmpegOutput for testing.
var ParseDurationFromFFmpegOutput = parseDurationFromFFmpegOutput

// ParseTimeComponents exports parseTimeComponents for testing.
var ParseTimeComponents = parseTimeComponents

// Candidates exports candidates for testing.
var Candidates = candidates

// Intervals exports intervals for testing.
var Intervals = intervals

// LastLines exports lastLines for testing.
var LastLines = lastLines

// --- Dependency injection exports ---

// CommandRunner exports commandRunner interface for testing.
type CommandRunner = commandRunner

// TempFileCreator exports tempFileCreator interface for testing.
type TempFileCreator = tempFileCreator

// FileRemover exports fileRemover interface for testing.
type FileRemover = fileRemover

// FileStatter exports fileStatter interface for testing.
type FileStatter = fileStatter
