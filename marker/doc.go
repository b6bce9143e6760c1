// Package marker issues and checks the short-lived bypass cookie set after a
// successful secret-question answer.
//
// The marker carries no identity: it is only present or absent for a realm path.
// By default its value is the literal "true". When a signing key is configured the
// value becomes an HS256 token whose exp matches the cookie max age and whose scope
// claim binds it to the realm path, so a copied or hand-crafted cookie is rejected.
package marker
