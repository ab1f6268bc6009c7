package manifest

import "errors"

// Sentinel errors for the manifest package
var (
	// ErrFileNotFound indicates the manifest file does not exist
	ErrFileNotFound = errors.New("manifest file not found")

	// ErrInvalidFormat indicates the manifest file is not valid YAML or JSON
	ErrInvalidFormat = errors.New("manifest must be valid YAML or JSON")

	// ErrUnsupportedExt indicates an unsupported file extension
	ErrUnsupportedExt = errors.New("unsupported file extension (use .yaml, .yml, or .json)")

	// ErrMissingField indicates a required top-level field is empty
	ErrMissingField = errors.New("required field is missing")

	// ErrNoFiles indicates the manifest declares no files
	ErrNoFiles = errors.New("manifest must list at least one file")

	// ErrEmptyFileName indicates a file entry without a name
	ErrEmptyFileName = errors.New("file name cannot be empty")

	// ErrDuplicateFileName indicates two file entries share a name
	ErrDuplicateFileName = errors.New("duplicate file name")

	// ErrUnsafePath indicates a file name that escapes the model directory
	ErrUnsafePath = errors.New("file name must be a clean relative path")

	// ErrNegativeSize indicates a negative declared size
	ErrNegativeSize = errors.New("file size must be non-negative")

	// ErrBadDigest indicates a sha256 value that is not 64 hex characters
	ErrBadDigest = errors.New("sha256 must be a 64-character hex digest")

	// ErrEmptySource indicates a file entry without a source URL
	ErrEmptySource = errors.New("file source cannot be empty")

	// ErrMissingStepType indicates a postprocessing step without $type
	ErrMissingStepType = errors.New("postprocessing step is missing $type")

	// ErrUnknownStepType indicates an unrecognized $type discriminator
	ErrUnknownStepType = errors.New("unknown postprocessing step type")

	// ErrUnknownFormat indicates an unpack_archive format with no unpacker
	ErrUnknownFormat = errors.New("unknown archive format")

	// ErrUnknownStepFile indicates a step referencing an undeclared file
	ErrUnknownStepFile = errors.New("postprocessing step references unknown file")

	// ErrEmptyPattern indicates a regex_replace step with a missing or invalid pattern
	ErrEmptyPattern = errors.New("regex_replace pattern is missing or invalid")
)
