package app

// DomainError is a failure the caller can act on. Status and Code travel to
// the client unchanged; Details carries optional field-level context for
// validation responses. Anything that is not a DomainError (and not one of
// the sentinel errors mapError knows) surfaces as a generic 500.
type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	return e.Code + ": " + e.Message
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{Status: status, Code: code, Message: message, Details: details}
}
