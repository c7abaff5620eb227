package service

import "errors"

// 业务层错误。handler 据此映射 HTTP 状态码：
// ErrNotFound -> 404, ErrAccessDenied -> 403, ErrInvalidCredentials -> 401,
// ErrUsernameTaken / ErrEmailTaken / ErrUnsupportedFormat -> 400。
var (
	ErrNotFound           = errors.New("resource not found")
	ErrAccessDenied       = errors.New("access denied")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrEmailTaken         = errors.New("email already registered")
)
