package transcribe

import "errors"

// ErrTranscriptionFailed indicates at least one chunk could not be transcribed.
// No partial transcript accompanies it.
var ErrTranscriptionFailed = errors.New("transcription failed")

// ErrAPIKeyMissing indicates OPENAI_API_KEY environment variable is not set.
var ErrAPIKeyMissing = errors.New("OPENAI_API_KEY environment variable not set")

// ErrUnknownEngine indicates an engine name other than openai or local.
var ErrUnknownEngine = errors.New("unknown transcription engine")

// ErrEngineCommandMissing indicates the local engine has no command configured.
var ErrEngineCommandMissing = errors.New("local engine command not configured")

// ErrEngineOutput indicates a local engine printed something other than segments.
var ErrEngineOutput = errors.New("unreadable engine output")
