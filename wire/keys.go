package wire

// Header keys, as small integers per the server's binary protocol.
const (
	KeyCode     = 0x00
	KeySync     = 0x01
	KeySchemaID = 0x05
)

// Body keys.
const (
	KeySpaceID  = 0x10
	KeyIndexID  = 0x11
	KeyLimit    = 0x12
	KeyOffset   = 0x13
	KeyIterator = 0x14
	KeyKey      = 0x20
	KeyTuple    = 0x21
	KeyFunction = 0x22
	KeyUsername = 0x23
	KeyOps      = 0x28
	KeyData     = 0x30
	KeyError    = 0x31
)

// Request codes. The core handles at minimum select/insert/replace/
// update/delete/auth/upsert; call and eval are reserved for a future
// extension (see Client.Call/Eval).
const (
	RequestCodeSelect  = 0x01
	RequestCodeInsert  = 0x02
	RequestCodeReplace = 0x03
	RequestCodeUpdate  = 0x04
	RequestCodeDelete  = 0x05
	RequestCodeCall    = 0x0A
	RequestCodeAuth    = 0x07
	RequestCodeEval    = 0x08
	RequestCodeUpsert  = 0x09
)

// ErrorCodeMask separates the success/error flag (top bit) from the
// server's error code carried in the low bits of a response header's
// code field.
const ErrorCodeMask = 0x8000

// IsErrorCode reports whether a response header code indicates failure.
func IsErrorCode(code uint64) bool {
	return code >= ErrorCodeMask
}
