package tarantool

import (
	"crypto/sha1"
)

// MechanismChapSha1 is the default, and currently only, supported
// authentication mechanism.
const MechanismChapSha1 = "chap-sha1"

// Authenticator computes the mechanism-specific scramble proving
// knowledge of a password without transmitting it, and knows which
// credential shapes it can work with. An authenticator is polymorphic
// over {mechanism name, credential shape}: the client selects one whose
// Mechanism matches the configured mechanism and whose
// CanAuthenticateWith accepts the supplied credentials.
type Authenticator interface {
	Mechanism() string
	CanAuthenticateWith(creds Credentials) bool
	Scramble(salt []byte, creds Credentials) ([]byte, error)
}

// ChapSha1Authenticator implements the server's default chap-sha1
// handshake:
//
//	step1 = SHA1(password)
//	step2 = SHA1(step1)
//	step3 = SHA1(salt20 || step2)
//	scramble[i] = step1[i] XOR step3[i]
type ChapSha1Authenticator struct{}

func (ChapSha1Authenticator) Mechanism() string { return MechanismChapSha1 }

func (ChapSha1Authenticator) CanAuthenticateWith(creds Credentials) bool {
	return creds.Username != "" && creds.Password != ""
}

func (ChapSha1Authenticator) Scramble(salt []byte, creds Credentials) ([]byte, error) {
	if len(salt) < 20 {
		return nil, &ProtocolError{Message: "chap-sha1 requires a 20-byte salt"}
	}
	salt20 := salt[:20]

	step1 := sha1.Sum([]byte(creds.Password)) // SHA1(password)
	step2 := sha1.Sum(step1[:])               // SHA1(step1)

	h := sha1.New()
	h.Write(salt20)
	h.Write(step2[:])
	var step3 [sha1.Size]byte
	h.Sum(step3[:0])

	scramble := make([]byte, sha1.Size)
	for i := range scramble {
		scramble[i] = step1[i] ^ step3[i]
	}
	return scramble, nil
}

// defaultAuthenticators is the built-in authenticator set. A future
// mechanism would be added here.
var defaultAuthenticators = []Authenticator{
	ChapSha1Authenticator{},
}

// selectAuthenticator picks the authenticator matching mechanism that
// also accepts creds, or fails with NoSuitableAuthenticator.
func selectAuthenticator(mechanism string, creds Credentials) (Authenticator, error) {
	for _, a := range defaultAuthenticators {
		if a.Mechanism() == mechanism && a.CanAuthenticateWith(creds) {
			return a, nil
		}
	}
	return nil, &NoSuitableAuthenticator{Mechanism: mechanism}
}
