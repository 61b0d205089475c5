// Package cipio provides structured error types for the encapsulation and
// CIP layers, so callers can distinguish a dropped TCP connection from a
// rejected CIP service without string-matching error text.
package cipio

import "fmt"

// Kind classifies which layer of the protocol stack produced an error.
type Kind int

const (
	// KindTransport covers TCP dial/read/write failures below the
	// encapsulation layer.
	KindTransport Kind = iota
	// KindEncapsulation covers malformed or unexpected encapsulation
	// headers/CPF structure (bad length, wrong item count, non-zero
	// encapsulation status).
	KindEncapsulation
	// KindSession covers session lifecycle misuse: register/unregister
	// failures, session handle mismatches, operations attempted before
	// registration.
	KindSession
	// KindCIPService covers a CIP request that reached the controller
	// and came back with a non-success general status.
	KindCIPService
	// KindCodec covers byte-codec failures: truncated data, a type code
	// the dispatch table doesn't recognize.
	KindCodec
	// KindResolver covers tag/template metadata resolution failures:
	// unknown template ID, malformed symbol entry, array-probe failure.
	KindResolver
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindEncapsulation:
		return "encapsulation"
	case KindSession:
		return "session"
	case KindCIPService:
		return "cip-service"
	case KindCodec:
		return "codec"
	case KindResolver:
		return "resolver"
	default:
		return "unknown"
	}
}

// ProtocolError is the error type returned by every layer of this module's
// client. Op names the operation that failed (e.g. "ReadTag"); Err, when
// set, is the underlying cause and is reachable via errors.Unwrap/errors.Is.
type ProtocolError struct {
	Kind Kind
	Op   string
	Err  error

	// Populated only for KindCIPService.
	GeneralStatus      byte
	GeneralStatusText  string
	ExtendedStatus     uint16
	ExtendedStatusText string
}

func (e *ProtocolError) Error() string {
	prefix := ""
	if e.Op != "" {
		prefix = e.Op + ": "
	}

	if e.Kind == KindCIPService {
		if e.ExtendedStatusText != "" || e.ExtendedStatus != 0 {
			return fmt.Sprintf("%sCIP error: %s (0x%02X), extended: %s (0x%04X)",
				prefix, e.GeneralStatusText, e.GeneralStatus, e.ExtendedStatusText, e.ExtendedStatus)
		}
		return fmt.Sprintf("%sCIP error: %s (0x%02X)", prefix, e.GeneralStatusText, e.GeneralStatus)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s%s: %v", prefix, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s%s error", prefix, e.Kind)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// NewCIPServiceError builds a KindCIPService error from a parsed CIP
// general/extended status, as returned in a response header.
func NewCIPServiceError(op string, status byte, statusText string, extStatus uint16, extText string) *ProtocolError {
	return &ProtocolError{
		Kind:               KindCIPService,
		Op:                 op,
		GeneralStatus:      status,
		GeneralStatusText:  statusText,
		ExtendedStatus:     extStatus,
		ExtendedStatusText: extText,
	}
}

// NewTransportError wraps a TCP-layer failure (dial, read, write).
func NewTransportError(op string, err error) *ProtocolError {
	return &ProtocolError{Kind: KindTransport, Op: op, Err: err}
}

// NewEncapsulationError wraps a malformed encapsulation header/CPF or a
// non-zero encapsulation status code.
func NewEncapsulationError(op string, err error) *ProtocolError {
	return &ProtocolError{Kind: KindEncapsulation, Op: op, Err: err}
}

// NewSessionError wraps session lifecycle misuse.
func NewSessionError(op string, err error) *ProtocolError {
	return &ProtocolError{Kind: KindSession, Op: op, Err: err}
}

// NewCodecError wraps a byte-codec failure.
func NewCodecError(op string, err error) *ProtocolError {
	return &ProtocolError{Kind: KindCodec, Op: op, Err: err}
}

// NewResolverError wraps a tag/template metadata resolution failure.
func NewResolverError(op string, err error) *ProtocolError {
	return &ProtocolError{Kind: KindResolver, Op: op, Err: err}
}
