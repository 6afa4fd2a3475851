package handlers

const (
	ErrInvalidRequestBody  = "Invalid request body"
	ErrInvalidFormData     = "Invalid form data"
	ErrUnauthorized        = "Unauthorized"
	ErrForbidden           = "Forbidden"
	ErrNotFound            = "Not found"
	ErrTooManyRequests     = "Too many requests"
	ErrInternalServerError = "Internal server error"

	csrfFormField  = "csrf_token"
	csrfHeaderName = "X-CSRF-Token"

	oauthStateCookie    = "oauth_state"
	oauthProviderCookie = "oauth_provider"
)
