package session

import (
	"errors"
	"strings"

	"github.com/xdg-go/scram"
)

// CredentialStore resolves a username to the stored credentials needed by a
// SASL mechanism. It stands in for whatever the real engine uses to persist
// accounts; riftdb only consumes it through this interface.
type CredentialStore interface {
	// PlainPassword returns the cleartext password for PLAIN auth.
	PlainPassword(username string) (string, bool)
	// SCRAMCredentials returns the salted credentials SCRAM-SHA-256 needs.
	SCRAMCredentials(username string) (scram.StoredCredentials, bool)
}

// Authenticator drives one SASL handshake to completion (spec.md §3, §6).
// It is created lazily on the first SASL request and discarded once the
// handshake completes; after that, username/authenticated are latched on
// the owning Session and the Authenticator is never reinstated (Design
// Notes, "Authenticator state").
type Authenticator interface {
	// Start computes the mechanism's initial challenge, before any client
	// token has been seen (the "SASL token request" handler).
	Start() (serverToken []byte, err error)
	// Response advances the handshake with one client token and returns the
	// next server challenge (the "SASL token step" handler).
	Response(clientToken []byte) (serverToken []byte, err error)
	IsComplete() bool
	GetUserName() string
}

// AuthProtocolError distinguishes a mechanism-level failure (spec.md §7
// kind 2, AuthFailed) from any other error arising during authentication,
// which is surfaced as a generic failure instead (no mechanism detail
// leaked).
type AuthProtocolError struct{ Cause error }

func (e *AuthProtocolError) Error() string { return "authentication protocol error" }
func (e *AuthProtocolError) Unwrap() error { return e.Cause }

// NewAuthenticator creates an Authenticator bound to mech, or an error if
// the mechanism is unrecognized.
func NewAuthenticator(mech string, store CredentialStore) (Authenticator, error) {
	switch mech {
	case "PLAIN":
		return &plainAuthenticator{store: store}, nil
	case "SCRAM-SHA-256":
		return newScramAuthenticator(store)
	default:
		return nil, &AuthProtocolError{Cause: errors.New("unknown mechanism: " + mech)}
	}
}

// plainAuthenticator implements RFC 4616 SASL PLAIN. The handshake spans two
// round trips the way every mechanism does here: Start returns a throwaway
// non-empty marker so the client knows to proceed, and the real
// authzid\0authcid\0password token arrives on the following Response call,
// which completes the handshake immediately. This needs no third-party
// library — the mechanism is a three-field NUL-delimited decode, and
// xdg-go/scram does not implement PLAIN.
type plainAuthenticator struct {
	store    CredentialStore
	complete bool
	username string
}

var plainStartMarker = []byte{0x01}

func (a *plainAuthenticator) Start() ([]byte, error) {
	return plainStartMarker, nil
}

func (a *plainAuthenticator) Response(clientToken []byte) ([]byte, error) {
	parts := strings.SplitN(string(clientToken), "\x00", 3)
	if len(parts) != 3 {
		return nil, &AuthProtocolError{Cause: errors.New("malformed PLAIN token")}
	}
	username, password := parts[1], parts[2]

	want, ok := a.store.PlainPassword(username)
	if !ok || want != password {
		return nil, &AuthProtocolError{Cause: errors.New("credential mismatch")}
	}

	a.username = username
	a.complete = true
	return nil, nil
}

func (a *plainAuthenticator) IsComplete() bool    { return a.complete }
func (a *plainAuthenticator) GetUserName() string { return a.username }

// scramAuthenticator wraps a server-side SCRAM-SHA-256 conversation. Unlike
// PLAIN, SCRAM's first real message comes from the client (client-first-
// message); Start has nothing to compute yet and returns an empty challenge.
type scramAuthenticator struct {
	conv     *scram.ServerConversation
	complete bool
}

func newScramAuthenticator(store CredentialStore) (*scramAuthenticator, error) {
	mechanism, err := scram.SHA256.NewServer(func(username string) (scram.StoredCredentials, error) {
		creds, ok := store.SCRAMCredentials(username)
		if !ok {
			return scram.StoredCredentials{}, errors.New("unknown user")
		}
		return creds, nil
	})
	if err != nil {
		return nil, &AuthProtocolError{Cause: err}
	}
	return &scramAuthenticator{conv: mechanism.NewConversation()}, nil
}

func (a *scramAuthenticator) Start() ([]byte, error) {
	return nil, nil
}

func (a *scramAuthenticator) Response(clientToken []byte) ([]byte, error) {
	resp, err := a.conv.Step(string(clientToken))
	if err != nil {
		return nil, &AuthProtocolError{Cause: err}
	}
	a.complete = a.conv.Done()
	return []byte(resp), nil
}

func (a *scramAuthenticator) IsComplete() bool    { return a.complete }
func (a *scramAuthenticator) GetUserName() string { return a.conv.Username() }
