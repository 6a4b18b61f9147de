package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConnectFailed = errors.New("connection failed after max retries")
)
