// Package jid parses and formats messaging addresses of form user[:device]@server.
package jid

import (
	"strconv"
	"strings"

	"go.mau.fi/libsignal/protocol"

	"code.linkpair.org/golang/internal/utils"
)

const (
	DefaultUserServer = "s.whatsapp.net"
	HiddenUserServer  = "lid"
)

// ServerJID is the address of the server, destination of iq acknowledgments.
var ServerJID = JID{Server: DefaultUserServer}

// JID is a messaging address. Device 0 designates the primary device of User.
type JID struct {
	User   string
	Device uint16
	Server string
}

// Parse returns the JID encoded in s.
// It errors if s has no server part or if its device part is not a 16 bits integer.
func Parse(s string) (JID, error) {
	var rv JID
	at := strings.LastIndexByte(s, '@')
	if at < 0 {
		if "" == s || strings.ContainsRune(s, ':') {
			return rv, wrapError(ErrInvalid, "missing server in %q", s)
		}
		// bare server address
		rv.Server = s
		return rv, nil
	}
	user, server := s[:at], s[at+1:]
	if "" == server {
		return rv, wrapError(ErrInvalid, "empty server in %q", s)
	}
	rv.Server = server
	if sep := strings.LastIndexByte(user, ':'); sep >= 0 {
		device, err := strconv.ParseUint(user[sep+1:], 10, 16)
		if nil != err {
			return JID{}, wrapError(ErrInvalid, "invalid device in %q", s)
		}
		rv.Device = uint16(device)
		user = user[:sep]
	}
	if "" == user {
		return JID{}, wrapError(ErrInvalid, "empty user in %q", s)
	}
	rv.User = user

	return rv, nil
}

// MustParse is like Parse but panics on error.
func MustParse(s string) JID {
	rv, err := Parse(s)
	if nil != err {
		panic(err)
	}
	return rv
}

// String returns the textual form of self.
func (self JID) String() string {
	if "" == self.User {
		return self.Server
	}
	if 0 == self.Device {
		return self.User + "@" + self.Server
	}
	return self.User + ":" + strconv.Itoa(int(self.Device)) + "@" + self.Server
}

// IsEmpty returns true if self is the zero JID.
func (self JID) IsEmpty() bool {
	return "" == self.Server
}

// ToNonAD returns self primary device address.
func (self JID) ToNonAD() JID {
	return JID{User: self.User, Server: self.Server}
}

// SignalAddress returns the signal protocol address of self.
// Hidden (lid) users are kept distinct from phone number users having the same digits.
func (self JID) SignalAddress() *protocol.SignalAddress {
	user := self.User
	if HiddenUserServer == self.Server {
		user += "_1"
	}
	return protocol.NewSignalAddress(user, uint32(self.Device))
}

// errorFlag is a private error type that allows declaring error constants.
type errorFlag string

const (
	// All package errors are wrapping Error
	Error      = errorFlag("jid: error")
	ErrInvalid = errorFlag("jid: invalid address")
	noError    = errorFlag("")
)

// Error implements the error interface.
func (self errorFlag) Error() string {
	return string(self)
}

func (self errorFlag) Unwrap() error {
	if Error == self || noError == self {
		return nil
	}
	return Error
}

func wrapError(cause error, msg string, args ...any) error {
	return utils.WrapError(cause, 1, Error, msg, args...)
}
