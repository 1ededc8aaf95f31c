package dbmap

import "errors"

var (
	ErrKeyAlreadyExists = errors.New("key already exists")
	ErrKeyNotFound      = errors.New("key not found")
	ErrNoRow            = errors.New("no row")
	ErrInvalidSelector  = errors.New("invalid column selector")
)
