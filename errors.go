// Copyright (c) 2024 gobq authors. All rights reserved.

package gobq

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	bq "google.golang.org/api/bigquery/v2"
	"google.golang.org/api/googleapi"
)

// BigQueryError is an error type including various BigQuery specific information.
type BigQueryError struct {
	Number      int
	Message     string
	MessageArgs []interface{}
	JobID       string
	Reason      string
	// Errors holds every error entry reported by the backend for a failed query.
	Errors []*ErrorEntry
	Cause  error
}

// ErrorEntry is a single structured error reported by BigQuery.
type ErrorEntry struct {
	Reason   string
	Location string
	Message  string
}

func (e *ErrorEntry) String() string {
	if e.Location != "" {
		return fmt.Sprintf("%s (%s): %s", e.Reason, e.Location, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

func (be *BigQueryError) Error() string {
	message := be.Message
	if len(be.MessageArgs) > 0 {
		message = fmt.Sprintf(be.Message, be.MessageArgs...)
	}
	if len(be.Errors) > 0 {
		entries := make([]string, len(be.Errors))
		for i, e := range be.Errors {
			entries[i] = e.String()
		}
		message = fmt.Sprintf("%s [%s]", message, strings.Join(entries, "; "))
	}
	if be.JobID != "" {
		return fmt.Sprintf("%06d: %s: %s", be.Number, be.JobID, message)
	}
	return fmt.Sprintf("%06d: %s", be.Number, message)
}

func (be *BigQueryError) Unwrap() error {
	return be.Cause
}

// Is matches BigQueryErrors by Number so that preformatted errors work with errors.Is.
func (be *BigQueryError) Is(target error) bool {
	var t *BigQueryError
	if !errors.As(target, &t) {
		return false
	}
	return t.Number == be.Number
}

const (
	// configuration

	// ErrCodeEmptyProjectID is an error code for the case where the config has no project id.
	ErrCodeEmptyProjectID = 270001
	// ErrCodeInvalidConfiguration is an error code for options rejected by the backend as invalid.
	ErrCodeInvalidConfiguration = 270002
	// ErrCodeTomlFileParsingFailed is an error code for the case where parsing the toml file fails.
	ErrCodeTomlFileParsingFailed = 270003
	// ErrCodeFailedToFindConnectionInToml is an error code for the case where the connection name is missing.
	ErrCodeFailedToFindConnectionInToml = 270004
	// ErrCodeInvalidFilePermission is an error code for a config file writable by others.
	ErrCodeInvalidFilePermission = 270005

	// query execution

	// ErrCodeQueryFailed is an error code for a query the backend reported as failed.
	ErrCodeQueryFailed = 271001
	// ErrCodeTransientExhausted is an error code for the case where the retry budget ran out.
	ErrCodeTransientExhausted = 271002
	// ErrCodeRequestFailed is an error code for a non-retryable request failure.
	ErrCodeRequestFailed = 271003
	// ErrCodeJobNotFound is an error code for a query job the backend cannot find.
	ErrCodeJobNotFound = 271004
	// ErrCodeTableNotFound is an error code for a destination table the backend cannot find.
	ErrCodeTableNotFound = 271005

	// result streaming

	// ErrCodeReadSession is an error code for a failure of the storage read session.
	ErrCodeReadSession = 272001
	// ErrCodeStreamProducer is an error code for a panic in the row producer.
	ErrCodeStreamProducer = 272002
	// ErrCodeColumnIndexOutOfRange is an error code for a destination slice shorter than the row.
	ErrCodeColumnIndexOutOfRange = 272003
	// ErrCodeUnsupportedColumnType is an error code for a cell that cannot be converted.
	ErrCodeUnsupportedColumnType = 272004
)

const (
	errMsgEmptyProjectID               = "project id is empty"
	errMsgFailedToParseTomlFile        = "failed to parse toml file. key: %v, value: %v"
	errMsgFailedToFindConnectionInToml = "failed to find connection %q in toml file"
	errMsgInvalidFilePermission        = "file %v is writable by group or others. permission: %v"
	errMsgQueryFailed                  = "query failed"
	errMsgTransientExhausted           = "retry budget exhausted after %d attempts"
	errMsgJobNotFound                  = "query job not found"
	errMsgTableNotFound                = "destination table not found"
	errMsgNoJobReference               = "query response carries no job reference"
	errMsgNoDestinationTable           = "query job has no destination table"
	errMsgReadSession                  = "failed to read from read session: %v"
	errMsgStreamProducer               = "row producer failed: %v"
	errMsgColumnIndexOutOfRange        = "column index out of range. row has %v columns, destination has %v"
	errMsgUnsupportedColumnType        = "unsupported column type %v for value %v"
)

var (
	// ErrEmptyProjectID is returned if the config has no project id.
	ErrEmptyProjectID = &BigQueryError{
		Number:  ErrCodeEmptyProjectID,
		Message: errMsgEmptyProjectID,
	}
	// ErrJobNotFound is returned if the query job is not found and the config does not tolerate it.
	ErrJobNotFound = &BigQueryError{
		Number:  ErrCodeJobNotFound,
		Message: errMsgJobNotFound,
	}
	// ErrTableNotFound is returned if the destination table of a query job is not found.
	ErrTableNotFound = &BigQueryError{
		Number:  ErrCodeTableNotFound,
		Message: errMsgTableNotFound,
	}
	// ErrQueryFailed matches any error the backend reported for a query.
	ErrQueryFailed = &BigQueryError{
		Number:  ErrCodeQueryFailed,
		Message: errMsgQueryFailed,
	}
	// ErrStreamAborted is the cancellation cause of a stream closed before it was exhausted.
	// It never reaches the caller as a failure; iteration simply ends.
	ErrStreamAborted = errors.New("result stream aborted by consumer")
)

// IsNotFound reports whether err is a job or table not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrJobNotFound) || errors.Is(err, ErrTableNotFound)
}

// IsQueryError reports whether err carries backend query error entries.
func IsQueryError(err error) bool {
	return errors.Is(err, ErrQueryFailed)
}

func errorEntriesFromProto(protos []*bq.ErrorProto) []*ErrorEntry {
	entries := make([]*ErrorEntry, 0, len(protos))
	for _, p := range protos {
		if p == nil {
			continue
		}
		entries = append(entries, &ErrorEntry{
			Reason:   p.Reason,
			Location: p.Location,
			Message:  p.Message,
		})
	}
	return entries
}

func newQueryError(jobID string, protos []*bq.ErrorProto) *BigQueryError {
	return &BigQueryError{
		Number:  ErrCodeQueryFailed,
		Message: errMsgQueryFailed,
		JobID:   jobID,
		Errors:  errorEntriesFromProto(protos),
	}
}

// translateError converts a terminal retry failure or raw RPC error into the
// caller visible error. Errors that are already translated pass through.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var be *BigQueryError
	if errors.As(err, &be) {
		return err
	}
	var rhe *retryHelperError
	exhausted := errors.As(err, &rhe) && rhe.exhausted
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		translated := &BigQueryError{
			Number:  ErrCodeRequestFailed,
			Message: gerr.Message,
			Cause:   err,
		}
		if len(gerr.Errors) > 0 {
			translated.Reason = gerr.Errors[0].Reason
			for _, item := range gerr.Errors {
				translated.Errors = append(translated.Errors, &ErrorEntry{
					Reason:  item.Reason,
					Message: item.Message,
				})
			}
		}
		switch {
		case exhausted:
			translated.Number = ErrCodeTransientExhausted
		case gerr.Code == http.StatusNotFound:
			// a missing job or destination table is classified by the caller
			if translated.Reason == "" {
				translated.Reason = "notFound"
			}
		case gerr.Code == http.StatusBadRequest:
			translated.Number = ErrCodeInvalidConfiguration
		}
		return translated
	}
	if exhausted {
		return &BigQueryError{
			Number:      ErrCodeTransientExhausted,
			Message:     errMsgTransientExhausted,
			MessageArgs: []interface{}{rhe.Attempts},
			Cause:       err,
		}
	}
	if rhe != nil {
		return &BigQueryError{
			Number:  ErrCodeRequestFailed,
			Message: rhe.Err.Error(),
			Cause:   rhe.Err,
		}
	}
	return err
}

func isNotFoundStatus(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusNotFound
}

func isConflictStatus(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusConflict
}

func jobNotFoundError(jobID string, cause error) *BigQueryError {
	return &BigQueryError{
		Number:  ErrCodeJobNotFound,
		Message: errMsgJobNotFound,
		JobID:   jobID,
		Reason:  "notFound",
		Cause:   cause,
	}
}

func tableNotFoundError(jobID string, cause error) *BigQueryError {
	return &BigQueryError{
		Number:  ErrCodeTableNotFound,
		Message: errMsgTableNotFound,
		JobID:   jobID,
		Reason:  "notFound",
		Cause:   cause,
	}
}

func readSessionError(cause error) *BigQueryError {
	return &BigQueryError{
		Number:      ErrCodeReadSession,
		Message:     errMsgReadSession,
		MessageArgs: []interface{}{cause},
		Cause:       cause,
	}
}
