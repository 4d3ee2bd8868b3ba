package auth

// Kind identifies how a stored Credential should be applied to an outgoing request.
type Kind string

const (
	// KindCondaToken rewrites the request URL path to /t/<token>/<original-path>.
	KindCondaToken Kind = "conda-token"
	// KindBearerToken adds an "Authorization: Bearer <token>" header.
	KindBearerToken Kind = "bearer-token"
	// KindBasicHTTP adds an "Authorization: Basic <base64>" header.
	KindBasicHTTP Kind = "basic-http"
	// KindS3 carries credentials opaquely; this middleware does not apply
	// them, and nothing else in this module reads them.
	KindS3 Kind = "s3"
	// KindOAuth carries an opaque bearer/refresh token pair; like KindS3,
	// this middleware does not apply it.
	KindOAuth Kind = "oauth"
)

// Credential is the value stored under a (host, path prefix) key. Only the
// fields relevant to Kind are populated.
type Credential struct {
	Kind     Kind   `json:"kind"`
	Token    string `json:"token,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	Opaque   string `json:"opaque,omitempty"` // raw value for KindS3/KindOAuth
}
