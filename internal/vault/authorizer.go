package vault

// Authorizer is the external access-control collaborator guarding the
// administrative surface. The vault does not define the role model; it only
// asks.
type Authorizer interface {
	// CanSetCap reports whether actor may update the assets cap.
	CanSetCap(actor string) bool
}

// StaticAuthorizer authorizes a fixed set of admin addresses, typically
// loaded from configuration at startup.
type StaticAuthorizer struct {
	admins map[string]struct{}
}

// NewStaticAuthorizer builds an authorizer over the given admin addresses.
func NewStaticAuthorizer(admins []string) *StaticAuthorizer {
	set := make(map[string]struct{}, len(admins))
	for _, a := range admins {
		if a != "" {
			set[a] = struct{}{}
		}
	}
	return &StaticAuthorizer{admins: set}
}

func (s *StaticAuthorizer) CanSetCap(actor string) bool {
	_, ok := s.admins[actor]
	return ok
}

// DenyAllAuthorizer rejects every administrative action. Used when no admin
// set is configured.
type DenyAllAuthorizer struct{}

func (DenyAllAuthorizer) CanSetCap(string) bool { return false }
