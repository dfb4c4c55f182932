package stem

import "errors"

var (
	// ErrNoStems means the input directory contained no stem named in the
	// canonical vocabulary.
	ErrNoStems = errors.New("no stem files found")

	// ErrSampleRateMismatch means a stem's sample rate differs from the
	// first stem's rate.
	ErrSampleRateMismatch = errors.New("sample rate mismatch")

	// ErrSilentStem means a stem's RMS energy over its full duration fell
	// below the silence threshold. Silent stems indicate a routing problem
	// upstream and are rejected rather than assembled into an inaudible
	// channel.
	ErrSilentStem = errors.New("silent stem rejected")

	// ErrManifestMissing means no stem index was found next to the stems.
	ErrManifestMissing = errors.New("stem index not found")
)
