// Package model contains the request and response bodies of the address book REST API that
// are not addresses themselves. Clients outside this module can use them to talk to the service.
package model

// Registration is the body of POST /register.
type Registration struct {
	DisplayName string `json:"displayName"`
	Username    string `json:"username"`
	Password    string `json:"password"`
}

// Credentials is the body of POST /login.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Token is the response of a successful login. The value is sent back as
// "Authorization: Bearer <token>".
type Token struct {
	Token string `json:"token"`
}

// Message is the body of responses that carry no data, including all error responses.
type Message struct {
	Message string `json:"message"`
}
