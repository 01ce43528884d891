package common

// AuthorizationHeader is the HTTP header carrying the bearer credential
// on outbound requests.
const AuthorizationHeader = "Authorization"

// BearerPrefix precedes the credential inside the Authorization header.
const BearerPrefix = "Bearer "
