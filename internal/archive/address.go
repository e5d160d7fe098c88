package archive

import "strings"

// Address identifies a chat participant or a room. It is a bare address
// ("alice@example.org") optionally qualified by a resource
// ("alice@example.org/desktop"). Room occupants are addressed as
// room-bare + "/" + nickname.
type Address struct {
	Bare     string
	Resource string
}

// ParseAddress splits a full address into its bare and resource parts.
// Everything after the first "/" is the resource.
func ParseAddress(s string) Address {
	if i := strings.IndexByte(s, '/'); i >= 0 {
		return Address{Bare: s[:i], Resource: s[i+1:]}
	}
	return Address{Bare: s}
}

// NewAddress builds an address from its parts. An empty resource yields a
// bare address.
func NewAddress(bare, resource string) Address {
	return Address{Bare: bare, Resource: resource}
}

func (a Address) String() string {
	if a.Resource == "" {
		return a.Bare
	}
	return a.Bare + "/" + a.Resource
}

// IsZero reports whether the address is empty.
func (a Address) IsZero() bool {
	return a.Bare == "" && a.Resource == ""
}
