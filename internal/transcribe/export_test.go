package transcribe

// Exports for testing. These allow black-box tests to inject dependencies
// without modifying the public API.

// AudioTranscriber exports audioTranscriber for mocks.
type AudioTranscriber = audioTranscriber

// OutputRunner exports outputRunner for mocks.
type OutputRunner = outputRunner

// NewTestOpenAIEngine creates an OpenAIEngine around a mock client.
var NewTestOpenAIEngine = newOpenAIEngine

// Function exports for unit testing internal logic.
var (
	ClassifyError  = classifyError
	DecodeSegments = decodeSegments
)
