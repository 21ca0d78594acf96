package booking

import "strings"

// AdminCapability proves that the calling layer has already authorized
// an administrative actor.  The engine never looks up roles itself; it
// only checks that a capability was issued.
type AdminCapability struct {
	subject string
}

// GrantAdmin issues a capability for subject.  Only the layer that
// verified the actor's role (the HTTP middleware or the operator CLI)
// should call it.
func GrantAdmin(subject string) AdminCapability {
	return AdminCapability{subject: strings.TrimSpace(subject)}
}

// Subject identifies the actor for audit logs.
func (c AdminCapability) Subject() string { return c.subject }

func (c AdminCapability) valid() bool { return c.subject != "" }
