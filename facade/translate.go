// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package facade

import (
	"errors"

	"github.com/zeebo/errs"

	"storj.io/tagstore"
	"storj.io/tagstore/paths"
	"storj.io/tagstore/query"
	"storj.io/tagstore/search"
)

// Code is the stable name of an error condition. Frontends key their
// responses on it, so the names are fixed across releases.
type Code string

// The full taxonomy. Every error leaving the facade carries exactly one of
// these.
const (
	CodeUnknownPath               Code = "UnknownPath"
	CodeUnknownTag                Code = "UnknownTag"
	CodeUnknownNamespace          Code = "UnknownNamespace"
	CodeDuplicatePath             Code = "DuplicatePath"
	CodeMalformedPath             Code = "MalformedPath"
	CodeNamespaceNotEmpty         Code = "NamespaceNotEmpty"
	CodeUnknownUser               Code = "UnknownUser"
	CodeInvalidUsername           Code = "InvalidUsername"
	CodeUserNotAllowedInException Code = "UserNotAllowedInException"
	CodeInvalidPolicy             Code = "InvalidPolicy"
	CodePermissionDenied          Code = "PermissionDenied"
	CodeUnauthorized              Code = "Unauthorized"
	CodeBadRequest                Code = "BadRequest"
	CodeParseError                Code = "ParseError"
	CodeIllegalQuery              Code = "IllegalQuery"
	CodeSearchError               Code = "SearchError"
	CodeNoInstanceOnObject        Code = "NoInstanceOnObject"
	CodeFeatureError              Code = "FeatureError"
	CodeInternal                  Code = "InternalError"
)

// classes maps every error class of the lower layers to its code.
var classes = []struct {
	class *errs.Class
	code  Code
}{
	{&tagstore.ErrUnknownTag, CodeUnknownTag},
	{&tagstore.ErrUnknownNamespace, CodeUnknownNamespace},
	{&tagstore.ErrUnknownPath, CodeUnknownPath},
	{&tagstore.ErrDuplicatePath, CodeDuplicatePath},
	{&paths.Error, CodeMalformedPath},
	{&tagstore.ErrNamespaceNotEmpty, CodeNamespaceNotEmpty},
	{&tagstore.ErrUnknownUser, CodeUnknownUser},
	{&tagstore.ErrInvalidUsername, CodeInvalidUsername},
	{&tagstore.ErrUserNotAllowedInException, CodeUserNotAllowedInException},
	{&tagstore.ErrInvalidPolicy, CodeInvalidPolicy},
	{&tagstore.ErrPermissionDenied, CodePermissionDenied},
	{&tagstore.ErrUnauthorized, CodeUnauthorized},
	{&tagstore.ErrBadRequest, CodeBadRequest},
	{&tagstore.ErrNoInstanceOnObject, CodeNoInstanceOnObject},
	{&tagstore.ErrFeature, CodeFeatureError},
	{&query.ErrParse, CodeParseError},
	{&query.ErrIllegal, CodeIllegalQuery},
	{&search.ErrSearch, CodeSearchError},
}

// CodedError pairs a taxonomy code with the failure it classifies. The
// cause stays reachable through Unwrap, so errors.Is and errors.As keep
// working on translated errors.
type CodedError struct {
	Code Code
	Err  error
}

// Error implements the error interface.
func (e *CodedError) Error() string { return string(e.Code) + ": " + e.Err.Error() }

// Unwrap returns the classified failure.
func (e *CodedError) Unwrap() error { return e.Err }

// CodeOf returns the taxonomy code of an error returned by the facade.
func CodeOf(err error) Code {
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code
	}
	code, _ := codeOf(err)
	return code
}

func codeOf(err error) (Code, bool) {
	for _, entry := range classes {
		if entry.class.Has(err) {
			return entry.code, true
		}
	}
	return CodeInternal, false
}
