package pipeline

import "fmt"

// ConversionError reports a failed ffmpeg audio extraction.
type ConversionError struct {
	Source string
	Err    error
}

// Error formats the failure for job records and logs.
func (e *ConversionError) Error() string {
	return fmt.Sprintf("audio conversion failed: %v", e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As.
func (e *ConversionError) Unwrap() error { return e.Err }

// UploadError reports a failed transfer of converted audio to the vendor.
type UploadError struct {
	Err error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("audio upload failed: %v", e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// SubmissionError reports a rejected transcription request.
type SubmissionError struct {
	Err error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("transcription submit failed: %v", e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// PollTimeoutError indicates the vendor did not finish within the wait window.
type PollTimeoutError struct {
	Err error
}

func (e *PollTimeoutError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return "transcription timed out"
}

func (e *PollTimeoutError) Unwrap() error { return e.Err }

// VendorTranscriptionError carries a terminal failure reported by the vendor.
type VendorTranscriptionError struct {
	Message string
}

func (e *VendorTranscriptionError) Error() string {
	if e.Message == "" {
		return "transcription failed"
	}
	return e.Message
}

// GenerationError reports a failure while rendering or writing the document.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("document generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// PersistenceError reports a failed history save. It never fails the job; the
// run completes and the error is surfaced as a warning.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("saving transcription history failed: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
