package auth

import (
	"fmt"
	"net/http"
	"strings"
)

// Credential is parsed from "Basic base64(<owner>/<dataset>:<token>)".
type Credential struct {
	Owner   string
	Dataset string
	Token   string
}

func (c *Credential) DatasetID() string {
	return c.Owner + "/" + c.Dataset
}

func validSegment(s string) bool {
	if len(s) == 0 || s == "." || s == ".." {
		return false
	}
	return !strings.ContainsAny(s, "/\\\x00")
}

func ParseCredential(r *http.Request) (*Credential, error) {
	if !strings.HasPrefix(r.Header.Get("Authorization"), "Basic") {
		return nil, ErrNoCredential
	}
	user, token, ok := r.BasicAuth()
	if !ok {
		return nil, fmt.Errorf("%w: decode basic auth failed", ErrBadCredential)
	}
	owner, ds, ok := strings.Cut(user, "/")
	if !ok {
		return nil, fmt.Errorf("%w: user should be owner/dataset", ErrBadCredential)
	}
	if !validSegment(owner) || !validSegment(ds) {
		return nil, fmt.Errorf("%w: invalid owner or dataset", ErrBadCredential)
	}
	return &Credential{Owner: owner, Dataset: ds, Token: token}, nil
}
