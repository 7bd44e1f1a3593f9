package common

// TokenCookieName is the HTTP cookie used to carry the session token
// between the UI and the API.
const TokenCookieName = "token"

// RoleCustomer is the role assigned to accounts registered without an
// explicit role.
const RoleCustomer = "Customer"

// RoleAdmin marks administrative accounts.
const RoleAdmin = "Admin"
