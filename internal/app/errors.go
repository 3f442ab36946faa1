package app

import "errors"

var (
	// ErrInvalidCredentials is returned when the supplied credentials do not match.
	// This message is intended to be shown to end users and should not enable account enumeration.
	ErrInvalidCredentials = errors.New("Incorrect email address or password")

	ErrEmailAndPasswordRequired = errors.New("email and password required")
	ErrEmailAlreadyExists       = errors.New("email already exists")

	// ErrNoContent is returned when a submission carries no usable text,
	// either because nothing was provided or because extraction produced
	// an empty result.
	ErrNoContent = errors.New("no text content or document provided")

	// ErrExtractionFailed wraps failures to read text out of an uploaded
	// document. Distinct from report generation failures.
	ErrExtractionFailed = errors.New("document text extraction failed")

	// ErrReportFailed wraps failures of the plagiarism report generation step.
	ErrReportFailed = errors.New("report generation failed")

	// ErrReportNotFound is returned when a submission ID has no cached
	// report, either unknown or expired.
	ErrReportNotFound = errors.New("report not found")
)
