package pipeline

import "errors"

// Errors crossing the pipeline boundary. Input errors are the caller's
// fault and should be surfaced to the user; provider errors for
// transcription are terminal, for generation they are absorbed by the
// fallback synthesizer.
var (
	ErrInputTooShort       = errors.New("entry text too short")
	ErrAudioTooSmall       = errors.New("audio payload too small")
	ErrEmptyTranscript     = errors.New("transcript empty or too short")
	ErrUnsupportedFormat   = errors.New("unsupported audio format")
	ErrPayloadTooLarge     = errors.New("audio payload too large")
	ErrProviderTimeout     = errors.New("provider timed out")
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrMalformedOutput     = errors.New("malformed generation output")
)

// IsRetryable reports whether err is a transient provider failure
// worth retrying. Input errors and malformed output are not.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrProviderTimeout) || errors.Is(err, ErrProviderUnavailable)
}

// IsInputError reports whether err is caused by the user's input
// rather than by a provider.
func IsInputError(err error) bool {
	return errors.Is(err, ErrInputTooShort) ||
		errors.Is(err, ErrAudioTooSmall) ||
		errors.Is(err, ErrEmptyTranscript) ||
		errors.Is(err, ErrUnsupportedFormat) ||
		errors.Is(err, ErrPayloadTooLarge)
}
