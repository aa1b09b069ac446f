package odoo

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// ErrAuthenticationFailed means Odoo refused the configured credentials.
	ErrAuthenticationFailed = errors.New("odoo: authentication failed")

	// ErrInvalidModel means the model does not exist on the server.
	ErrInvalidModel = errors.New("odoo: invalid model")

	// ErrInvalidMethod means the method does not exist on the model.
	ErrInvalidMethod = errors.New("odoo: invalid method for the model")

	// ErrAccessDenied means the integration user lacks rights on the model.
	ErrAccessDenied = errors.New("odoo: access denied")

	// ErrRPC is the generic XML-RPC failure.
	ErrRPC = errors.New("odoo: XML-RPC call failed")

	// ErrInvalidResponse is returned when a reply does not have the expected shape.
	ErrInvalidResponse = errors.New("odoo: invalid RPC response")
)

// RPCError is a fault returned by the Odoo server.
type RPCError struct {
	OriginalError error
	Code          int
	Message       string
}

func (e *RPCError) Error() string {
	if e.OriginalError != nil {
		return fmt.Sprintf("%s: %s (original: %v)", ErrRPC, e.Message, e.OriginalError)
	}
	return fmt.Sprintf("%s: %s", ErrRPC, e.Message)
}

func (e *RPCError) Unwrap() error {
	return e.OriginalError
}

// Is lets errors.Is(err, ErrRPC) match any RPCError.
func (e *RPCError) Is(target error) bool {
	return target == ErrRPC
}

// Matches both "Fault(2): msg" as formatted by kolo/xmlrpc and "Fault 2: 'msg'".
var faultPattern = regexp.MustCompile(`(?s)Fault ?\(?(-?\d+)\)?: (.*)`)

// parseRPCError classifies an error from the xmlrpc client. kolo/xmlrpc reports
// faults as plain strings, so the classification works on the message.
func parseRPCError(err error) error {
	if err == nil {
		return nil
	}

	errMsg := err.Error()
	faultCode := 0
	faultMessage := errMsg

	if m := faultPattern.FindStringSubmatch(errMsg); len(m) == 3 {
		if code, cerr := strconv.Atoi(m[1]); cerr == nil {
			faultCode = code
		}
		faultMessage = strings.Trim(m[2], "'")
	}

	switch {
	case strings.Contains(faultMessage, "The model does not exist"),
		strings.Contains(faultMessage, "No model named"),
		strings.Contains(faultMessage, "not found in registry"):
		return fmt.Errorf("%w: %s (original: %w)", ErrInvalidModel, faultMessage, err)
	case strings.Contains(faultMessage, "Object has no method"),
		strings.Contains(faultMessage, "method does not exist"),
		strings.Contains(faultMessage, "has no attribute"):
		return fmt.Errorf("%w: %s (original: %w)", ErrInvalidMethod, faultMessage, err)
	case strings.Contains(faultMessage, "AccessError"),
		strings.Contains(faultMessage, "Access Denied"),
		strings.Contains(faultMessage, "not allowed to access"):
		return fmt.Errorf("%w: %s (original: %w)", ErrAccessDenied, faultMessage, err)
	}

	return &RPCError{
		OriginalError: err,
		Code:          faultCode,
		Message:       faultMessage,
	}
}
