package http

import (
	"errors"
	"net/mail"
	"net/url"
	"strings"
	"unicode/utf8"

	"urlshorten/pkg/service"
)

const (
	maxURLLength      = 300
	maxUserFieldLen   = 50
	maxEmailLength    = 80
	maxPasswordBytes  = 72
	maxRequestBodyLen = 1 << 20
)

var (
	errURLRequired     = errors.New("url is required")
	errURLTooLong      = errors.New("url must be at most 300 characters")
	errInvalidURL      = errors.New("invalid URL")
	errInvalidScheme   = errors.New("invalid URL scheme: only http and https allowed")
	errUserIDRequired  = errors.New("userid is required")
	errUserIDColon     = errors.New("userid must not contain ':'")
	errNameRequired    = errors.New("name is required")
	errPasswordMissing = errors.New("password is required")
	errFieldTooLong    = errors.New("userid, name and password must be at most 50 characters")
	errPasswordTooLong = errors.New("password must be at most 72 bytes")
	errEmailTooLong    = errors.New("email must be at most 80 characters")
	errInvalidEmail    = errors.New("invalid email address")
)

func validateLongURL(raw string) error {
	if raw == "" {
		return errURLRequired
	}
	if utf8.RuneCountInString(raw) > maxURLLength {
		return errURLTooLong
	}

	parsedURL, err := url.ParseRequestURI(raw)
	if err != nil || parsedURL.Host == "" {
		return errInvalidURL
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return errInvalidScheme
	}
	return nil
}

func validateRegistration(req *service.RegisterRequest) error {
	switch {
	case req.UserID == "":
		return errUserIDRequired
	case req.Name == "":
		return errNameRequired
	case req.Password == "":
		return errPasswordMissing
	}

	for _, v := range []string{req.UserID, req.Name, req.Password} {
		if utf8.RuneCountInString(v) > maxUserFieldLen {
			return errFieldTooLong
		}
	}
	if strings.Contains(req.UserID, ":") {
		return errUserIDColon
	}
	// bcrypt refuses longer input
	if len(req.Password) > maxPasswordBytes {
		return errPasswordTooLong
	}

	if req.Email != "" {
		if utf8.RuneCountInString(req.Email) > maxEmailLength {
			return errEmailTooLong
		}
		if _, err := mail.ParseAddress(req.Email); err != nil {
			return errInvalidEmail
		}
	}
	return nil
}
