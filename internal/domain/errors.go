package domain

import "errors"

var (
	ErrDataSourceUnavailable = errors.New("data source unavailable")
	ErrInvalidSprintWindow   = errors.New("invalid sprint window")
	ErrSprintNotFound        = errors.New("sprint not found")
)
