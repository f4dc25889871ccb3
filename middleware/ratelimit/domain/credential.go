package domain

import (
	"encoding/base64"
	"strings"
)

type CredentialKind int

const (
	CredentialNone CredentialKind = iota
	CredentialBasic
	CredentialBearer
)

// Credential is what the Authorization header carried. Only the fields for
// Kind are populated.
type Credential struct {
	Kind     CredentialKind
	Username string
	Password string
	Token    string
}

// DefaultTokenSchemes are the Authorization schemes treated as bearer tokens.
var DefaultTokenSchemes = []string{"Token", "Bearer"}

// ParseAuthorization turns a raw Authorization header into a Credential.
// Anything it does not understand (unknown scheme, bad base64, missing
// colon) yields a None credential; it never fails.
func ParseAuthorization(header string, tokenSchemes ...string) Credential {
	if len(tokenSchemes) == 0 {
		tokenSchemes = DefaultTokenSchemes
	}

	scheme, rest, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok {
		return Credential{}
	}
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return Credential{}
	}

	if strings.EqualFold(scheme, "Basic") {
		raw, err := base64.StdEncoding.DecodeString(rest)
		if err != nil {
			return Credential{}
		}
		user, pass, ok := strings.Cut(string(raw), ":")
		if !ok {
			return Credential{}
		}
		return Credential{Kind: CredentialBasic, Username: user, Password: pass}
	}

	for _, s := range tokenSchemes {
		if strings.EqualFold(scheme, s) {
			return Credential{Kind: CredentialBearer, Token: rest}
		}
	}
	return Credential{}
}
