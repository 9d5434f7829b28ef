package common

// AuthorizationHeader carries the staff bearer token on review API requests.
const AuthorizationHeader = "Authorization"

// BearerPrefix precedes the token value in AuthorizationHeader.
const BearerPrefix = "Bearer "
