// Package iap calls resources protected by an OIDC-aware proxy (for example
// Identity-Aware Proxy) using a service account key.
//
// The flow is strictly sequential:
//   - load the service account key and email
//   - build and sign a JWT-bearer assertion carrying the target audience
//   - exchange the assertion at the OAuth2 token endpoint for an ID token
//   - GET the protected resource with the ID token as a bearer credential
//
// Usage as library:
//
//	import "github.com/capiscio/capiscio-iap/pkg/iap"
//
//	client := iap.NewClient(iap.WithLogger(logger))
//	body, err := client.InvokeRequest(ctx, iap.Request{
//	    TargetAudience:  "1234.apps.googleusercontent.com",
//	    CredentialsFile: "/path/to/key.json",
//	    URI:             "https://example.com/protected",
//	})
//
// Nothing is cached between invocations: every call mints a new assertion
// and a new ID token.
package iap
