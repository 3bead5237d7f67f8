package domain

// Source identifies which trust source produced an identity.
type Source string

const (
	SourceLocal    Source = "LOCAL"
	SourceExternal Source = "EXTERNAL"
)

// Identity is the normalized claim set produced by either trust source. It is
// created fresh per authentication event and never persisted beyond the
// signed token.
type Identity struct {
	Subject     string
	DisplayName string
	Email       string
	RawRoles    []string
	Source      Source
}
